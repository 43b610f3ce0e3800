package timer

// State is the controller's position in the pomodoro cycle.
type State string

const (
	StateIdle         State = "idle"
	StateFocusRunning State = "focus_running"
	StateFocusPaused  State = "focus_paused"
	StateBreakRunning State = "break_running"
	StateBreakPaused  State = "break_paused"
)

// Phase is the interval a non-idle state belongs to.
type Phase string

const (
	PhaseNone  Phase = ""
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// Running reports whether ticks advance the countdown in this state.
func (s State) Running() bool {
	return s == StateFocusRunning || s == StateBreakRunning
}

// Paused reports whether the countdown is frozen mid-phase.
func (s State) Paused() bool {
	return s == StateFocusPaused || s == StateBreakPaused
}

// Phase returns the phase the state belongs to, or PhaseNone when idle.
func (s State) Phase() Phase {
	switch s {
	case StateFocusRunning, StateFocusPaused:
		return PhaseFocus
	case StateBreakRunning, StateBreakPaused:
		return PhaseBreak
	default:
		return PhaseNone
	}
}

// Label is the human-readable name shown next to the countdown.
func (s State) Label() string {
	switch s {
	case StateFocusRunning:
		return "Focus Time"
	case StateFocusPaused:
		return "Focus Time (paused)"
	case StateBreakRunning:
		return "Break Time"
	case StateBreakPaused:
		return "Break Time (paused)"
	default:
		return "Ready"
	}
}
