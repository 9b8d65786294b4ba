package models

import (
	"fmt"
	"strconv"
	"time"
)

// DisplayTimeLayout is the layout used for window bounds in reports and configuration.
const DisplayTimeLayout = "02/01/2006 15:04:05"

// Window is a half-open time range in epoch milliseconds.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Lookback returns the window length in milliseconds, as expected by the Zipkin API.
func (w Window) Lookback() int64 {
	return w.End - w.Start
}

// Midpoint returns the timestamp metrics for the window are recorded at.
func (w Window) Midpoint() int64 {
	return (w.Start + w.End) / 2
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s", FormatMillis(w.Start), FormatMillis(w.End))
}

// FormatMillis renders an epoch-milliseconds timestamp in UTC.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DisplayTimeLayout)
}

// ParseMillis parses a DisplayTimeLayout string (UTC) into epoch milliseconds.
func ParseMillis(s string) (int64, error) {
	t, err := time.ParseInLocation(DisplayTimeLayout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// SplitWindows cuts [start, end) into consecutive windows of the given interval. The last
// window is shortened to end at end. A non-positive interval yields a single window.
func SplitWindows(start, end int64, interval time.Duration) []Window {
	if end <= start {
		return nil
	}
	step := interval.Milliseconds()
	if step <= 0 {
		return []Window{{Start: start, End: end}}
	}
	var windows []Window
	for from := start; from < end; from += step {
		to := from + step
		if to > end {
			to = end
		}
		windows = append(windows, Window{Start: from, End: to})
	}
	return windows
}

// ParseTimestamp accepts epoch milliseconds or a DisplayTimeLayout string.
func ParseTimestamp(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	return ParseMillis(s)
}
