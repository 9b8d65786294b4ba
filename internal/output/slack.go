package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"graphy/internal/config"
	"graphy/internal/models"
)

// SlackSender posts morphology notifications to a Slack webhook.
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSender initializes a SlackSender with a configured webhook URL and HTTP client.
func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSlackSenderFromConfig returns nil when Slack output is disabled.
func NewSlackSenderFromConfig(cfg config.SlackOutputConfig) *SlackSender {
	if !cfg.Enabled {
		return nil
	}
	return NewSlackSender(cfg.WebhookURL)
}

// SlackBlock represents a Slack message block
type SlackBlock struct {
	Type   string       `json:"type"`
	Text   *SlackText   `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

// SlackText represents text in Slack
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackField represents a field in Slack
type SlackField struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackMessage represents a Slack message
type SlackMessage struct {
	Blocks []SlackBlock `json:"blocks"`
}

// NotifyMorphology sends a morphology report to Slack
func (s *SlackSender) NotifyMorphology(ctx context.Context, report models.MorphologyReport) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	body, err := json.Marshal(s.buildMessage(report))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status: %d", resp.StatusCode)
	}

	return nil
}

// buildMessage constructs a Slack block kit payload from a morphology report.
func (s *SlackSender) buildMessage(r models.MorphologyReport) SlackMessage {
	msg := s.buildSummary(r)
	if len(r.Suggestions) == 0 {
		return msg
	}

	msg.Blocks = append(msg.Blocks, SlackBlock{
		Type: "section",
		Text: &SlackText{
			Type: "mrkdwn",
			Text: "*Suggested Checks (Rule Engine)*",
		},
	})
	for i, sg := range r.Suggestions {
		if i >= 3 { // Limit to top 3 rules
			break
		}
		msg.Blocks = append(msg.Blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf(">*%s*\n>%s\n>%s", sg.Title, sg.Description, sg.Action),
			},
		})
	}
	return msg
}

func (s *SlackSender) buildSummary(r models.MorphologyReport) SlackMessage {
	emoji := "📈"
	if r.Variance < 0 {
		emoji = "📉"
	} else if r.Variance == 0 {
		emoji = "➖"
	}

	return SlackMessage{
		Blocks: []SlackBlock{
			{
				Type: "header",
				Text: &SlackText{
					Type: "plain_text",
					Text: fmt.Sprintf("%s System morphology from %s", emoji, r.Window),
				},
			},
			{
				Type: "section",
				Fields: []SlackField{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Gain:*\n%d", r.Gain)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Loss:*\n%d", r.Loss)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Variance:*\n%d", r.Variance)},
				},
			},
			{
				Type: "section",
				Fields: []SlackField{
					summaryField("Previous", r.Previous),
					summaryField("Current", r.Current),
				},
			},
			{
				Type: "section",
				Text: &SlackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Changed services:*\n%s", nodeList(r.Diff.Nodes)),
				},
			},
			{
				Type: "divider",
			},
			{
				Type: "context",
				Fields: []SlackField{
					{
						Type: "mrkdwn",
						Text: fmt.Sprintf("Diff: %s | %d edges", r.Diff.Name, r.Diff.Edges),
					},
				},
			},
		},
	}
}

func summaryField(label string, g models.GraphSummary) SlackField {
	return SlackField{
		Type: "mrkdwn",
		Text: fmt.Sprintf("*%s:*\n%d services, %d edges", label, len(g.Nodes), g.Edges),
	}
}

func nodeList(nodes []string) string {
	if len(nodes) == 0 {
		return "none"
	}
	return "`" + strings.Join(nodes, "`, `") + "`"
}
