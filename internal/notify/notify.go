// Package notify tells the user when a pomodoro phase ends.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/joescharf/pomo/internal/timer"
)

// Notification is a short user-facing message.
type Notification struct {
	Title string
	Body  string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// FromEvent returns the notification for a phase-completion event. ok is
// false for every other event type.
func FromEvent(e timer.Event) (n Notification, ok bool) {
	switch e.Type {
	case timer.EventFocusCompleted:
		n = Notification{Title: "Pomodoro complete!", Body: "Time for a break!"}
		if e.Err != nil {
			n.Body += " (session was not saved)"
		}
		return n, true
	case timer.EventBreakCompleted:
		return Notification{Title: "Break time is over!", Body: "Ready for the next focus session."}, true
	default:
		return Notification{}, false
	}
}

// Bell rings the terminal bell and prints the message.
type Bell struct {
	mu  sync.Mutex
	Out io.Writer
}

// NewBell returns a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{Out: w}
}

func (b *Bell) Notify(_ context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprintf(b.Out, "\a%s %s\n", n.Title, n.Body)
	return err
}

// Command runs an external program such as notify-send with the title and
// body appended as the last two arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a configured command line on whitespace. An empty line
// yields nil.
func ParseCommand(line string) *Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &Command{Name: fields[0], Args: fields[1:]}
}

func (c *Command) Notify(ctx context.Context, n Notification) error {
	args := append(append([]string(nil), c.Args...), n.Title, n.Body)
	out, err := exec.CommandContext(ctx, c.Name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify command %s: %w: %s", c.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; the errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
