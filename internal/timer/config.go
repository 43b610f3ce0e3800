package timer

import "fmt"

const (
	DefaultFocusSeconds = 25 * 60
	DefaultBreakSeconds = 5 * 60
)

// Config holds the phase durations in whole seconds.
type Config struct {
	FocusSeconds int `json:"focusSeconds"`
	BreakSeconds int `json:"breakSeconds"`
}

// DefaultConfig returns the classic 25/5 pomodoro.
func DefaultConfig() Config {
	return Config{
		FocusSeconds: DefaultFocusSeconds,
		BreakSeconds: DefaultBreakSeconds,
	}
}

// Validate requires both durations to be positive.
func (c Config) Validate() error {
	if c.FocusSeconds <= 0 {
		return fmt.Errorf("%w: focus duration must be positive, got %d", ErrInvalidConfig, c.FocusSeconds)
	}
	if c.BreakSeconds <= 0 {
		return fmt.Errorf("%w: break duration must be positive, got %d", ErrInvalidConfig, c.BreakSeconds)
	}
	return nil
}

func (c Config) duration(p Phase) int {
	if p == PhaseBreak {
		return c.BreakSeconds
	}
	return c.FocusSeconds
}
