package preview

import (
	"context"
	"fmt"
	"sync"
)

// Toggler switches markup mode on and off for one editor.
type Toggler interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// Singleton owns the one Controller of an editing session. The controller
// is built on first activation, after the editor reports ready.
type Singleton struct {
	editor Editor
	build  func() *Controller

	once sync.Once
	ctrl *Controller
	mu   sync.Mutex
}

var _ Toggler = (*Singleton)(nil)

// NewSingleton returns a Toggler that calls build at most once.
func NewSingleton(editor Editor, build func() *Controller) *Singleton {
	return &Singleton{editor: editor, build: build}
}

// Activate waits for the editor, then shows the preview and sets the
// markup-mode marker.
func (s *Singleton) Activate(ctx context.Context) error {
	if err := s.editor.Ready(ctx); err != nil {
		return fmt.Errorf("waiting for editor: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller().Show()
	s.editor.SetActive(true)
	return nil
}

// Deactivate waits for the editor, then hides the preview and clears the
// marker. Deactivating before any activation only clears the marker.
func (s *Singleton) Deactivate(ctx context.Context) error {
	if err := s.editor.Ready(ctx); err != nil {
		return fmt.Errorf("waiting for editor: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Hide()
	}
	s.editor.SetActive(false)
	return nil
}

// Controller returns the session's controller, or nil before the first
// activation.
func (s *Singleton) Controller() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

func (s *Singleton) controller() *Controller {
	s.once.Do(func() { s.ctrl = s.build() })
	return s.ctrl
}
