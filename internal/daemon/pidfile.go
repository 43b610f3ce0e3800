package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is matched by the error Acquire returns when another live
// process holds the lock.
var ErrAlreadyRunning = errors.New("another pomo instance is running")

// RunningError reports the PID of the instance holding the lock.
type RunningError struct {
	PID int
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("%s (pid %d)", ErrAlreadyRunning, e.PID)
}

func (e *RunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// PIDFile manages a PID file for instance tracking.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Create writes the current process's PID, failing with fs.ErrExist when
// the file is already present.
func (p *PIDFile) Create() error {
	f, err := os.OpenFile(p.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		_ = f.Close()
		_ = os.Remove(p.Path)
		return err
	}
	return f.Close()
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// Lock keeps a single timer instance per state directory. Two instances
// would both record the same focus sessions.
type Lock struct {
	pf *PIDFile
}

// Acquire takes the lock at path. A PID file left behind by a dead process
// is replaced.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	pf := NewPIDFile(path)

	for attempt := 0; attempt < 2; attempt++ {
		err := pf.Create()
		if err == nil {
			return &Lock{pf: pf}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("write PID file: %w", err)
		}

		if pid, running := pf.IsRunning(); running && pid != os.Getpid() {
			return nil, &RunningError{PID: pid}
		}
		if err := pf.Remove(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale PID file: %w", err)
		}
	}
	return nil, fmt.Errorf("acquire %s: lock contended", path)
}

// Release removes the PID file if it still names this process.
func (l *Lock) Release() error {
	pid, err := l.pf.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return l.pf.Remove()
}

// Path is the PID file location.
func (l *Lock) Path() string {
	return l.pf.Path
}
