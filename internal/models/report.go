package models

// GraphSummary describes one graph snapshot in a report.
type GraphSummary struct {
	Name   string   `json:"name"`
	Nodes  []string `json:"nodes"`
	Edges  int      `json:"edges"`
	Calls  int64    `json:"calls"`
	Cyclic bool     `json:"cyclic"`
}

// Suggestion is an actionable follow-up for a change in the service graph.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

// MorphologyReport describes how the service graph changed between two consecutive windows.
type MorphologyReport struct {
	Window      Window       `json:"window"`
	Previous    GraphSummary `json:"previous"`
	Current     GraphSummary `json:"current"`
	Diff        GraphSummary `json:"diff"`
	Gain        int64        `json:"gain"`
	Loss        int64        `json:"loss"`
	Variance    int64        `json:"variance"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}
