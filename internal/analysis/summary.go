package analysis

import (
	"encoding/json"

	"abcy/internal/activity"
)

// MetersPerSecondToKmh converts provider speeds to km/h
const MetersPerSecondToKmh = 3.6

// BuildSummary projects a stored activity into a Summary.
// Each field takes the first available source; a field with no source is nil.
// ftp is the FTP in effect now and only applies where the metadata lacks
// save-time intensity factor or training stress.
func BuildSummary(id int64, detail activity.Detail, ftp float64) activity.Summary {
	meta := detail.Meta
	if meta == nil {
		meta = activity.NewMetadata()
	}
	streams := detail.Streams

	duration := Duration(meta, streams)

	summary := activity.Summary{
		ID:        id,
		Name:      meta.Name(),
		StartDate: meta.StartDate(),
		Distance:  meta.Distance(),
		Duration:  duration,
	}
	if metaID, ok := meta.ID(); ok {
		summary.ID = metaID
	}

	summary.TotalElevationGain = floatField(meta, "total_elevation_gain")

	summary.WeightedAveragePower = firstFloat(
		floatField(meta, "weighted_average_watts"),
		floatField(meta, "average_watts"),
		streamNP(streams),
	)

	summary.AverageSpeed = floatField(meta, "average_speed")
	if summary.AverageSpeed == nil && duration > 0 {
		summary.AverageSpeed = floatPtr(summary.Distance / float64(duration))
	}
	summary.AverageSpeed = toKmh(summary.AverageSpeed)
	summary.MaxSpeed = toKmh(floatField(meta, "max_speed"))

	summary.PRCount = prCount(meta)

	if len(streams.Heartrate) > 0 {
		var total int64
		for _, hr := range streams.Heartrate {
			total += hr
		}
		summary.AverageHeartrate = floatPtr(float64(total) / float64(len(streams.Heartrate)))
	} else {
		summary.AverageHeartrate = floatField(meta, "average_heartrate")
	}

	var m struct {
		SummaryPolyline *string `json:"summary_polyline"`
	}
	if meta.Object("map", &m) {
		summary.SummaryPolyline = m.SummaryPolyline
	}
	if t, ok := meta.String("type"); ok {
		summary.ActivityType = &t
	}

	summary.NormalizedPower = firstFloat(floatField(meta, activity.KeyNormalizedPower), streamNP(streams))

	summary.IntensityFactor = floatField(meta, activity.KeyIntensityFactor)
	if summary.IntensityFactor == nil && summary.NormalizedPower != nil {
		summary.IntensityFactor = floatPtr(IntensityFactor(*summary.NormalizedPower, ftp))
	}

	summary.TrainingStressScore = floatField(meta, activity.KeyTrainingStressScore)
	if summary.TrainingStressScore == nil && summary.NormalizedPower != nil {
		summary.TrainingStressScore = floatPtr(TrainingStress(float64(duration), *summary.NormalizedPower, ftp))
	}

	return summary
}

// prCount counts segment efforts ranked first, else reads pr_count.
func prCount(meta *activity.Metadata) *int64 {
	if raw, ok := meta.Raw("segment_efforts"); ok {
		var efforts []struct {
			PRRank json.Number `json:"pr_rank"`
		}
		if err := json.Unmarshal(raw, &efforts); err == nil {
			var count int64
			for _, e := range efforts {
				if rank, err := e.PRRank.Int64(); err == nil && rank == 1 {
					count++
				}
			}
			return &count
		}
	}
	if n, ok := meta.Int("pr_count"); ok {
		return &n
	}
	return nil
}

func streamNP(streams activity.Streams) *float64 {
	if len(streams.Power) == 0 {
		return nil
	}
	return floatPtr(WeightedAveragePower(streams.Power))
}

func floatField(meta *activity.Metadata, key string) *float64 {
	if v, ok := meta.Float(key); ok {
		return &v
	}
	return nil
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func toKmh(mps *float64) *float64 {
	if mps == nil {
		return nil
	}
	return floatPtr(*mps * MetersPerSecondToKmh)
}

func floatPtr(v float64) *float64 {
	return &v
}
