package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/stats"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Client wraps the Anthropic API for focus reviews.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model. Extra
// request options are passed to the SDK.
func NewClient(apiKey, model string, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildPrompt constructs the system and user prompts for a weekly review.
func buildPrompt(summary stats.Summary, days []stats.Day) (system string, user string) {
	system = `You are a supportive study coach reviewing a student's pomodoro focus log.
Write a short weekly review in plain text (no markdown headings, no bullet lists longer than three items).

Rules:
- At most 120 words
- Mention one concrete pattern you see in the daily minutes (best day, gaps, trend)
- End with one specific, achievable suggestion for next week
- Do not invent numbers that are not in the data`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sessions today: %d\n", summary.Today)
	fmt.Fprintf(&sb, "Sessions this week: %d\n", summary.Week)
	fmt.Fprintf(&sb, "Current daily streak: %d days\n", summary.Streak)
	fmt.Fprintf(&sb, "All-time: %d sessions, %s of focus\n", summary.TotalSessions, output.FormatDuration(summary.TotalFocusSeconds))
	if len(days) > 0 {
		sb.WriteString("\nFocus minutes per day (oldest first):\n")
		for _, d := range days {
			fmt.Fprintf(&sb, "- %s %s: %d min (%d sessions)\n", d.Label(), d.Date.Format("2006-01-02"), d.FocusMinutes, d.Sessions)
		}
	}
	user = sb.String()
	return
}

// WeeklyReview asks the model for a short narrative review of the week.
func (c *Client) WeeklyReview(ctx context.Context, summary stats.Summary, days []stats.Day) (string, error) {
	systemPrompt, userPrompt := buildPrompt(summary, days)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, strings.TrimSpace(block.Text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content in API response")
	}
	return strings.Join(parts, "\n\n"), nil
}
