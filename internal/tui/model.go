// Package tui is the interactive terminal timer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/stats"
	"github.com/joescharf/pomo/internal/timer"
)

// Timer is the part of runner.Runner the UI drives.
type Timer interface {
	Toggle(ctx context.Context) error
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (timer.Snapshot, error)
}

// SummaryFunc loads the today/streak figures shown under the clock.
type SummaryFunc func(ctx context.Context) (stats.Summary, error)

// Options configures the model.
type Options struct {
	// Events is a subscription to the timer's events.
	Events <-chan timer.Event
	// Summary is reloaded after every completed focus phase. Optional.
	Summary SummaryFunc
	// Bell rings the terminal bell when a phase completes.
	Bell bool
	// OnPhaseComplete runs for each completed phase, off the UI goroutine.
	OnPhaseComplete func(timer.Event)
}

// Messages

type snapshotMsg struct {
	snap timer.Snapshot
	err  error
}

type summaryMsg struct {
	summary stats.Summary
	err     error
}

type eventMsg timer.Event

type actionMsg struct {
	err error
}

// eventsClosedMsg means the timer has stopped.
type eventsClosedMsg struct{}

// Model is the Bubble Tea model for the timer screen.
type Model struct {
	ctx     context.Context
	timer   Timer
	opts    Options
	keys    keyMap
	help    help.Model
	bar     progress.Model
	snap    timer.Snapshot
	summary stats.Summary
	notice  string
	err     error
	quit    bool
}

// NewModel creates the timer screen.
func NewModel(ctx context.Context, t Timer, opts Options) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40
	return Model{
		ctx:   ctx,
		timer: t,
		opts:  opts,
		keys:  defaultKeyMap(),
		help:  help.New(),
		bar:   bar,
		snap:  timer.Snapshot{State: timer.StateIdle},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSnapshot(), m.fetchSummary(), m.waitForEvent())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.bar.Width = clamp(msg.Width-16, 10, 60)
		return m, nil

	case actionMsg:
		m.err = msg.err
		return m, m.fetchSnapshot()

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snap = msg.snap
		return m, nil

	case summaryMsg:
		if msg.err == nil {
			m.summary = msg.summary
		}
		return m, nil

	case eventMsg:
		return m.handleEvent(timer.Event(msg))

	case eventsClosedMsg:
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.notice = ""
		return m, m.act(m.timer.Toggle)
	case key.Matches(msg, m.keys.Reset):
		m.notice = ""
		return m, m.act(m.timer.Reset)
	}
	return m, nil
}

func (m Model) handleEvent(e timer.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForEvent(), m.fetchSnapshot()}

	switch e.Type {
	case timer.EventFocusCompleted:
		m.notice = "Pomodoro complete! Time for a break!"
		if e.Err != nil {
			m.err = e.Err
		}
		cmds = append(cmds, m.fetchSummary())
	case timer.EventBreakCompleted:
		m.notice = "Break time is over!"
	}

	if e.PhaseCompleted() {
		if m.opts.Bell {
			cmds = append(cmds, ringBell())
		}
		if m.opts.OnPhaseComplete != nil {
			hook := m.opts.OnPhaseComplete
			cmds = append(cmds, func() tea.Msg {
				hook(e)
				return nil
			})
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quit {
		return ""
	}

	accent := stateColor(m.snap.State)

	remaining := m.snap.FocusSeconds
	if m.snap.RemainingSeconds != nil {
		remaining = *m.snap.RemainingSeconds
	}

	var b strings.Builder
	b.WriteString(labelStyle.Foreground(accent).Render(m.snap.State.Label()))
	b.WriteString("\n\n")
	b.WriteString(clockStyle.Foreground(accent).Render(output.FormatClock(remaining)))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.snap.Progress))
	b.WriteString("\n\n")
	b.WriteString(statsStyle.Render(fmt.Sprintf("Today: %d  ·  Streak: %d days", m.summary.Today, m.summary.Streak)))

	if m.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(m.notice)
	}
	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(errorText(m.err)))
	}

	body := frameStyle.Render(lipgloss.JoinVertical(lipgloss.Center, b.String()))
	return lipgloss.JoinVertical(lipgloss.Left, body, helpStyle.Render(m.help.View(m.keys)))
}

// Commands

func (m Model) act(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{err: fn(ctx)}
	}
}

func (m Model) fetchSnapshot() tea.Cmd {
	ctx, t := m.ctx, m.timer
	return func() tea.Msg {
		snap, err := t.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) fetchSummary() tea.Cmd {
	if m.opts.Summary == nil {
		return nil
	}
	ctx, fn := m.ctx, m.opts.Summary
	return func() tea.Msg {
		s, err := fn(ctx)
		return summaryMsg{summary: s, err: err}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.opts.Events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

// ringBell writes the bell character straight to the terminal; it works in
// alt-screen mode too.
func ringBell() tea.Cmd {
	return func() tea.Msg {
		_, _ = os.Stdout.Write([]byte{'\a'})
		return nil
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, timer.ErrAppendFailed):
		return "Session could not be saved: " + err.Error()
	case errors.Is(err, timer.ErrInvalidTransition):
		return "Not now: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
