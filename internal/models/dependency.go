package models

// Dependency is one aggregated caller/callee link from the tracing backend.
type Dependency struct {
	Parent     string `json:"parent"`
	Child      string `json:"child"`
	CallCount  int64  `json:"callCount"`
	ErrorCount int64  `json:"errorCount,omitempty"`
}

// Measurement is a labeled numeric value sent to the metric sink.
type Measurement struct {
	Label string
	Value float64
}
