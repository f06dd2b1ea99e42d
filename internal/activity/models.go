package activity

// Header is the listing projection of an activity
type Header struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	StartDate string  `json:"start_date"`
	Distance  float64 `json:"distance"` // meters
}

// Detail is a stored activity: metadata plus canonical streams
type Detail struct {
	Meta    *Metadata `json:"meta"`
	Streams Streams   `json:"streams"`
}

// Summary is the typed per-activity projection used by stats, scores and trends.
// Optional fields are nil when no source data exists.
type Summary struct {
	ID                   int64    `json:"id"`
	Name                 string   `json:"name"`
	StartDate            string   `json:"start_date"`
	Distance             float64  `json:"distance"`             // meters
	TotalElevationGain   *float64 `json:"total_elevation_gain"` // meters
	Duration             int64    `json:"duration"`             // seconds
	WeightedAveragePower *float64 `json:"weighted_average_power"`
	AverageSpeed         *float64 `json:"average_speed"` // km/h
	MaxSpeed             *float64 `json:"max_speed"`     // km/h
	PRCount              *int64   `json:"pr_count"`
	AverageHeartrate     *float64 `json:"average_heartrate"`
	SummaryPolyline      *string  `json:"summary_polyline"`
	NormalizedPower      *float64 `json:"normalized_power"`
	IntensityFactor      *float64 `json:"intensity_factor"`
	TrainingStressScore  *float64 `json:"training_stress_score"`
	ActivityType         *string  `json:"activity_type"`
}
