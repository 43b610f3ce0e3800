package timer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidConfig is returned when a duration is not positive.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrAppendFailed is returned from Tick when the session log rejected a completed session.
	// The phase transition has already happened when this is returned.
	ErrAppendFailed = errors.New("append completed session failed")
)

func invalidTransition(op string, from State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, from)
}
