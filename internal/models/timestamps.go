package models

// TimestampStats summarizes the start times of a batch of spans, in epoch microseconds.
type TimestampStats struct {
	Count int     `json:"count"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Avg   float64 `json:"avg"`
}

// Timestamps computes the min, max and mean normalized timestamp of spans. Spans without a
// timestamp, or with a zero one, are left out.
func Timestamps(spans []*Span) TimestampStats {
	var (
		stats TimestampStats
		sum   float64
	)
	for _, s := range spans {
		ts, ok := s.Timestamp()
		if !ok || ts == 0 {
			continue
		}
		if stats.Count == 0 || ts < stats.Min {
			stats.Min = ts
		}
		if ts > stats.Max {
			stats.Max = ts
		}
		sum += float64(ts)
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Avg = sum / float64(stats.Count)
	}
	return stats
}
