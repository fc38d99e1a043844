// Package preview keeps a live rendering of the focused editor field in a
// collapsible panel.
//
// The controller moves through three states: unmounted until the first
// Show, then visible or hidden as markup mode is toggled. Every re-render
// takes a generation token; a finished render is written only while its
// token is still current and the panel is visible and expanded, so a render
// overtaken by an edit or a focus change never replaces newer output.
package preview

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ziadkadry99/anki-md/internal/generation"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

// Renderer turns field text into HTML.
type Renderer interface {
	Render(ctx context.Context, field string) string
}

// Controller drives one editing session's preview panel.
type Controller struct {
	editor   Editor
	panel    Panel
	renderer Renderer
	store    Store
	debounce time.Duration
	ctx      context.Context
	log      *log.Logger

	tokens   generation.Counter
	inflight sync.WaitGroup

	mu          sync.Mutex
	values      []string
	fieldSet    int
	focused     int
	collapsed   bool
	visible     bool
	mounted     bool
	pending     bool
	unsubs      []func()
	fieldUnsubs []func()
	timer       *time.Timer
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce delays renders until edits pause for d.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithStore persists the collapse state in s.
func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithContext sets the context renders and store calls run under.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns an unmounted controller. The persisted collapse state is
// read here; a failing store leaves the panel expanded.
func New(editor Editor, panel Panel, r Renderer, opts ...Option) *Controller {
	c := &Controller{
		editor:   editor,
		panel:    panel,
		renderer: r,
		store:    &MemoryStore{},
		ctx:      context.Background(),
		log:      logger.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	v, ok, err := c.store.Get(c.ctx, CollapsedKey)
	if err != nil {
		c.log.Debug("reading preview collapse state", "err", err)
	}
	c.collapsed = err == nil && ok && v == "1"
	return c
}

// Show makes the panel visible, subscribes to the editor and renders the
// focused field. Showing a visible panel does nothing.
func (c *Controller) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visible {
		return
	}
	c.visible = true

	c.panel.Show()
	if !c.mounted {
		c.mounted = true
		c.panel.SetCollapsed(c.collapsed)
	}

	c.subscribeFields()
	c.unsubs = append(c.unsubs, c.editor.FieldsReplaced().Subscribe(func(int) { c.fieldsReplaced() }))
	focus := c.editor.Focus()
	c.focused = focus.Get()
	c.unsubs = append(c.unsubs, focus.Subscribe(c.focusChanged))

	c.rerender()
}

// Hide releases every subscription and hides the panel. Renders still in
// flight are discarded when they finish.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	c.visible = false
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	c.unsubscribeFields()
	c.stopTimer()
	c.tokens.Next()
	c.panel.Hide()
}

// ToggleCollapsed flips the collapse state, persists it and, on expanding,
// runs a render that was held back while collapsed.
func (c *Controller) ToggleCollapsed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collapsed = !c.collapsed
	c.panel.SetCollapsed(c.collapsed)

	value := "0"
	if c.collapsed {
		value = "1"
	}
	if err := c.store.Set(c.ctx, CollapsedKey, value); err != nil {
		c.log.Debug("persisting preview collapse state", "err", err)
	}

	if !c.collapsed && c.pending && c.visible {
		c.rerender()
	}
	return c.collapsed
}

// Collapsed reports the collapse state.
func (c *Controller) Collapsed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collapsed
}

// Visible reports whether the panel is showing.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Pending reports whether a render is waiting for the panel to expand.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// FocusedIndex returns the field the preview follows.
func (c *Controller) FocusedIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// Wait blocks until no debounce timer or render is outstanding.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// subscribeFields snapshots the editor's current fields and follows them.
// Callers hold c.mu.
func (c *Controller) subscribeFields() {
	c.fieldSet++
	set := c.fieldSet
	fields := c.editor.Fields()
	c.values = make([]string, len(fields))
	for i, f := range fields {
		c.values[i] = f.Get()
		c.fieldUnsubs = append(c.fieldUnsubs, f.Subscribe(func(v string) { c.fieldChanged(set, i, v) }))
	}
}

// unsubscribeFields drops the field subscriptions. Callers hold c.mu.
func (c *Controller) unsubscribeFields() {
	for _, unsub := range c.fieldUnsubs {
		unsub()
	}
	c.fieldUnsubs = nil
}

func (c *Controller) fieldsReplaced() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	c.unsubscribeFields()
	c.subscribeFields()
	c.rerender()
}

func (c *Controller) fieldChanged(set, i int, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible || set != c.fieldSet || i < 0 || i >= len(c.values) {
		return
	}
	c.values[i] = v
	if i == c.focused {
		c.rerender()
	}
}

func (c *Controller) focusChanged(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	c.focused = i
	c.rerender()
}

// rerender invalidates outstanding renders and starts a new one, or marks
// it pending while collapsed. Callers hold c.mu.
func (c *Controller) rerender() {
	token := c.tokens.Next()
	c.stopTimer()
	if c.collapsed {
		c.pending = true
		return
	}
	c.pending = false

	if c.debounce <= 0 {
		c.launch(token)
		return
	}
	c.inflight.Add(1)
	c.timer = time.AfterFunc(c.debounce, func() {
		defer c.inflight.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.tokens.Current(token) {
			c.launch(token)
		}
	})
}

// launch renders the focused field in the background. Callers hold c.mu.
func (c *Controller) launch(token generation.Token) {
	text := ""
	if c.focused >= 0 && c.focused < len(c.values) {
		text = c.values[c.focused]
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		out := c.renderer.Render(c.ctx, text)
		c.apply(token, out)
	}()
}

func (c *Controller) apply(token generation.Token, out string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tokens.Current(token) || !c.visible || c.collapsed {
		return
	}
	c.panel.SetHTML(out)
}

// stopTimer cancels a scheduled debounced render. Callers hold c.mu.
func (c *Controller) stopTimer() {
	if c.timer != nil && c.timer.Stop() {
		c.inflight.Done()
	}
	c.timer = nil
}
