package store

import "time"

// Auth represents stored OAuth tokens
type Auth struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ActivityRecord is one stored activity with uncompressed JSON payloads
type ActivityRecord struct {
	ID        int64
	Year      string
	Name      string
	StartDate string
	Distance  float64
	Meta      []byte // metadata JSON object
	Streams   []byte // raw provider streams JSON
}
