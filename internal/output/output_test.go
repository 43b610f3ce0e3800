package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/timer"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog(t *testing.T) {
	u, out, _ := newTestUI()
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())

	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestStateColor(t *testing.T) {
	for _, s := range []timer.State{
		timer.StateIdle, timer.StateFocusRunning, timer.StateFocusPaused,
		timer.StateBreakRunning, timer.StateBreakPaused,
	} {
		assert.Contains(t, StateColor(s), s.Label())
	}
}

func TestStreakColor(t *testing.T) {
	assert.Equal(t, "0", StreakColor(0))
	assert.Contains(t, StreakColor(2), "2")
	assert.Contains(t, StreakColor(5), "5")
	assert.Contains(t, StreakColor(12), "12")
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{1500, "25:00"},
		{999, "16:39"},
		{59, "00:59"},
		{0, "00:00"},
		{-3, "00:00"},
		{100 * 60, "100:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.seconds))
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", FormatDuration(30))
	assert.Equal(t, "25m", FormatDuration(1500))
	assert.Equal(t, "2h 05m", FormatDuration(125*60))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0, 100, 10))
	assert.Equal(t, "", Bar(10, 0, 10))
	assert.Equal(t, 10, len([]rune(Bar(100, 100, 10))))
	assert.Equal(t, 5, len([]rune(Bar(50, 100, 10))))
	assert.Equal(t, 1, len([]rune(Bar(1, 100, 10))), "non-zero values stay visible")
	assert.Equal(t, 10, len([]rune(Bar(500, 100, 10))))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"ID", "Completed"})
	require.NotNil(t, table)

	table.Append([]string{"01HX", "09:30"})
	table.Append([]string{"01HY", "10:00"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "01HX"), "table output should contain session ids")
	assert.True(t, strings.Contains(result, "10:00"), "table output should contain times")
}
