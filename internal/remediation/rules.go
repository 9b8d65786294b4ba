// Package remediation provides a fast, rule-based engine for suggesting follow-ups to changes in
// the service graph.
package remediation

import (
	"fmt"
	"strings"

	"graphy/internal/models"
)

// DefaultDropRatio is the share of the previous window's calls that must be lost before a
// traffic drop is reported.
const DefaultDropRatio = 0.5

// Engine evaluates morphology reports against a set of heuristic rules.
type Engine struct {
	dropRatio float64
}

// NewEngine initializes the engine. A non-positive dropRatio uses DefaultDropRatio.
func NewEngine(dropRatio float64) *Engine {
	if dropRatio <= 0 {
		dropRatio = DefaultDropRatio
	}
	return &Engine{dropRatio: dropRatio}
}

// GetSuggestions triggers every rule matching the change between the two windows of the report.
func (e *Engine) GetSuggestions(r models.MorphologyReport) []models.Suggestion {
	var suggestions []models.Suggestion

	if gone := missing(r.Previous.Nodes, r.Current.Nodes); len(gone) > 0 {
		suggestions = append(suggestions, models.Suggestion{
			Title:       "Services Stopped Reporting",
			Description: fmt.Sprintf("%s took part in calls in the previous window but not in this one.", strings.Join(gone, ", ")),
			Action:      "Check whether the services were scaled down, redeployed without tracing, or lost their upstream callers.",
		})
	}

	if added := missing(r.Current.Nodes, r.Previous.Nodes); len(added) > 0 {
		suggestions = append(suggestions, models.Suggestion{
			Title:       "New Services In The Call Graph",
			Description: fmt.Sprintf("%s started taking part in calls in this window.", strings.Join(added, ", ")),
			Action:      "Confirm the rollout was expected and the new dependencies are documented.",
		})
	}

	if r.Previous.Calls > 0 && float64(r.Loss) >= e.dropRatio*float64(r.Previous.Calls) {
		suggestions = append(suggestions, models.Suggestion{
			Title:       "Call Volume Dropped",
			Description: fmt.Sprintf("%d of %d calls from the previous window were lost.", r.Loss, r.Previous.Calls),
			Action:      "Compare ingress traffic with the previous window and check the error rate of the entry services.",
		})
	}

	if r.Current.Cyclic && !r.Previous.Cyclic {
		suggestions = append(suggestions, models.Suggestion{
			Title:       "New Call Cycle",
			Description: "Services started calling each other in a loop.",
			Action:      "Inspect the cycles with `graphy zipkin --print-graph-statistics` and look for retry storms.",
		})
	}

	return suggestions
}

// missing returns the names of a that are not in b, in the order of a.
func missing(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, n := range b {
		in[n] = true
	}
	var out []string
	for _, n := range a {
		if !in[n] {
			out = append(out, n)
		}
	}
	return out
}
