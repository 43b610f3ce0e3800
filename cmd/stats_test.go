package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// fixedNow pins the reporting clock to Wed 2026-03-18 15:00 UTC.
func fixedNow(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })
	return now
}

func seedSessions(t *testing.T, s store.Store, now time.Time) {
	t.Helper()
	ctx := context.Background()
	records := []models.CompletedSession{
		{ID: "today-1", CompletedAt: now.Add(-5 * time.Hour), DurationSeconds: 1500},
		{ID: "today-2", CompletedAt: now.Add(-2 * time.Hour), DurationSeconds: 1500},
		{ID: "yesterday", CompletedAt: now.AddDate(0, 0, -1), DurationSeconds: 1500},
		{ID: "last-week", CompletedAt: now.AddDate(0, 0, -6), DurationSeconds: 3000},
	}
	for _, r := range records {
		r.Kind = models.SessionKindFocus
		require.NoError(t, s.AppendSession(ctx, r))
	}
}

func TestStatsRun_Empty(t *testing.T) {
	dir, out := testEnv(t)
	fixedNow(t)
	s := testStore(t, dir)

	require.NoError(t, statsRun(context.Background(), s))

	text := out.String()
	assert.Contains(t, text, "0 sessions")
	assert.Contains(t, text, "Start your first Pomodoro session today")
	assert.NotContains(t, text, "Completed")
}

func TestStatsRun_WithSessions(t *testing.T) {
	dir, out := testEnv(t)
	now := fixedNow(t)
	s := testStore(t, dir)
	seedSessions(t, s, now)

	require.NoError(t, statsRun(context.Background(), s))

	text := out.String()
	assert.Contains(t, text, "Today       2 sessions")
	// The week starts on Sunday the 15th.
	assert.Contains(t, text, "This week   3 sessions")
	assert.Contains(t, text, "Streak      2 days")
	assert.Contains(t, text, "4 sessions, 2h 05m focused")
	assert.Contains(t, text, "Wed")
	assert.Contains(t, text, " 50 min")
	assert.Contains(t, text, "today-2")
	assert.Contains(t, text, "Keep up the great work!")
}

func TestRootRun_ShowsStats(t *testing.T) {
	dir, out := testEnv(t)
	fixedNow(t)
	testStore(t, dir)

	require.NoError(t, rootRun(rootCmd))
	assert.Contains(t, out.String(), "Streak")
}

func TestInsightsRun_RulesOnly(t *testing.T) {
	dir, out := testEnv(t)
	now := fixedNow(t)
	s := testStore(t, dir)
	seedSessions(t, s, now)

	insightsAI = false
	require.NoError(t, insightsRun(context.Background(), s))
	assert.Contains(t, out.String(), "Consistency is key")
}

func TestInsightsRun_AIWithoutKey(t *testing.T) {
	dir, _ := testEnv(t)
	fixedNow(t)
	s := testStore(t, dir)
	t.Setenv("ANTHROPIC_API_KEY", "")

	insightsAI = true
	defer func() { insightsAI = false }()

	err := insightsRun(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Anthropic API key")
}

func TestInsightsRun_AIReview(t *testing.T) {
	dir, out := testEnv(t)
	now := fixedNow(t)
	s := testStore(t, dir)
	seedSessions(t, s, now)

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-sonnet-4-5",
			"content":       []map[string]any{{"type": "text", "text": "Two strong days in a row."}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer srv.Close()

	origOpts := llmOptions
	llmOptions = []option.RequestOption{option.WithBaseURL(srv.URL), option.WithMaxRetries(0)}
	t.Cleanup(func() { llmOptions = origOpts })

	viper.Set("anthropic.api_key", "test-key")
	insightsAI = true
	defer func() { insightsAI = false }()

	require.NoError(t, insightsRun(context.Background(), s))
	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, out.String(), "Two strong days in a row.")
}

func TestNewLLMClient(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.Nil(t, newLLMClient())

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	assert.NotNil(t, newLLMClient())
}
