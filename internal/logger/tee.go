package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

// Tee is a log file receiving a copy of everything written to the console,
// with terminal colour sequences removed.
type Tee struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenTee creates <dir>/<program>-<script>-<unix seconds>.log, replacing a previous
// file of the same name. The caller owns the returned Tee and must Close it.
func OpenTee(dir, program, script string, now time.Time) (*Tee, error) {
	name := fmt.Sprintf("%s-%s-%d.log", program, script, now.Unix())
	path := filepath.Join(dir, name)

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale log file: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Tee{path: path, file: file}, nil
}

func (t *Tee) Path() string { return t.path }

// Write stores p without ANSI escape sequences. It always reports len(p) so it can
// sit behind an io.MultiWriter next to the terminal.
func (t *Tee) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return 0, fs.ErrClosed
	}
	if _, err := t.file.Write(StripANSI(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *Tee) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Console returns stdout and stderr writers that also feed the tee.
// A nil Tee yields the plain console.
func (t *Tee) Console() (stdout, stderr io.Writer) {
	if t == nil {
		return os.Stdout, os.Stderr
	}
	return io.MultiWriter(os.Stdout, t), io.MultiWriter(os.Stderr, t)
}

func StripANSI(p []byte) []byte {
	return ansiPattern.ReplaceAll(p, nil)
}

type teeKey struct{}

// ContextWithTee attaches t to ctx for commands that stream subprocess output.
func ContextWithTee(ctx context.Context, t *Tee) context.Context {
	return context.WithValue(ctx, teeKey{}, t)
}

// TeeFromContext returns the Tee stored in ctx, or nil.
func TeeFromContext(ctx context.Context) *Tee {
	t, _ := ctx.Value(teeKey{}).(*Tee)
	return t
}
