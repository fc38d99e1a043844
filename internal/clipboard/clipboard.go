// Package clipboard is the write-only clipboard capability used by the copy
// control of code blocks.
package clipboard

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable is returned by clipboards that cannot be written.
var ErrUnavailable = errors.New("clipboard not available")

// Clipboard accepts text for the user's clipboard.
type Clipboard interface {
	// Available reports whether WriteText can succeed at all.
	Available() bool
	WriteText(ctx context.Context, text string) error
}

// Memory keeps written text in memory.
type Memory struct {
	mu      sync.Mutex
	entries []string
}

// Available implements Clipboard.
func (m *Memory) Available() bool { return true }

// WriteText implements Clipboard.
func (m *Memory) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, text)
	return nil
}

// Last returns the most recently written text.
func (m *Memory) Last() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return "", false
	}
	return m.entries[len(m.entries)-1], true
}

// Entries returns everything written so far, oldest first.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}

// None is a clipboard that is never available.
type None struct{}

// Available implements Clipboard.
func (None) Available() bool { return false }

// WriteText implements Clipboard.
func (None) WriteText(context.Context, string) error { return ErrUnavailable }

// System is the operating system clipboard. On platforms without one it
// reports unavailable.
type System struct {
	once sync.Once
	err  error
}

// Available implements Clipboard.
func (s *System) Available() bool {
	return systemAvailable && s.init() == nil
}

// WriteText implements Clipboard.
func (s *System) WriteText(_ context.Context, text string) error {
	if err := s.init(); err != nil {
		return err
	}
	return writeSystem(text)
}

func (s *System) init() error {
	s.once.Do(func() { s.err = initSystem() })
	return s.err
}
