package strava

// Activity is the subset of a Strava activity listing entry that sync needs.
// Full activity detail is kept as raw JSON.
type Activity struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	StartDate string  `json:"start_date"`
	Distance  float64 `json:"distance"` // meters
}

// StreamKeys are the stream types requested for each activity
const StreamKeys = "latlng,time,altitude,heartrate,watts"
