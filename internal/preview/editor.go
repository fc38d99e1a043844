package preview

import (
	"context"
	"sync"

	"github.com/ziadkadry99/anki-md/internal/observe"
)

// Editor is the host's note editor as the preview sees it.
type Editor interface {
	// Ready blocks until the host editor has finished initializing.
	Ready(ctx context.Context) error
	Fields() []observe.Observable[string]
	// FieldsReplaced delivers the new field count whenever Fields starts
	// returning a different set.
	FieldsReplaced() observe.Subscribable[int]
	Focus() observe.Observable[int]
	// SetActive toggles the markup-mode marker on the editor.
	SetActive(on bool)
}

// ActiveClass marks the editor body while markup mode is on.
const ActiveClass = "anki-md-active"

// BufferEditor is an Editor whose state is pushed in by the caller, e.g.
// from messages sent by a remote editing UI.
type BufferEditor struct {
	ready     chan struct{}
	readyOnce sync.Once

	mu     sync.Mutex
	fields []*observe.Value[string]
	focus  *observe.Value[int]
	active bool
	onSet  func(bool)

	replaced observe.Publisher[int]
}

// NewBufferEditor returns an editor with the given initial field values.
// It is not ready until MarkReady is called.
func NewBufferEditor(values ...string) *BufferEditor {
	e := &BufferEditor{ready: make(chan struct{}), focus: observe.NewValue(0)}
	e.SetFields(values...)
	return e
}

// OnActive registers fn to run whenever SetActive changes the marker.
func (e *BufferEditor) OnActive(fn func(bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSet = fn
}

// MarkReady releases every Ready waiter.
func (e *BufferEditor) MarkReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Ready implements Editor.
func (e *BufferEditor) Ready(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetFields replaces the field set and notifies FieldsReplaced
// subscribers.
func (e *BufferEditor) SetFields(values ...string) {
	fields := make([]*observe.Value[string], len(values))
	for i, v := range values {
		fields[i] = observe.NewValue(v)
	}
	e.mu.Lock()
	e.fields = fields
	e.mu.Unlock()
	e.replaced.Publish(len(fields))
}

// FieldsReplaced implements Editor.
func (e *BufferEditor) FieldsReplaced() observe.Subscribable[int] { return &e.replaced }

// Fields implements Editor.
func (e *BufferEditor) Fields() []observe.Observable[string] {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]observe.Observable[string], len(e.fields))
	for i, f := range e.fields {
		out[i] = f
	}
	return out
}

// SetField updates field i. Out of range indexes are ignored.
func (e *BufferEditor) SetField(i int, value string) {
	e.mu.Lock()
	if i < 0 || i >= len(e.fields) {
		e.mu.Unlock()
		return
	}
	f := e.fields[i]
	e.mu.Unlock()
	f.Set(value)
}

// Focus implements Editor.
func (e *BufferEditor) Focus() observe.Observable[int] { return e.focus }

// SetFocus moves focus to field i.
func (e *BufferEditor) SetFocus(i int) { e.focus.Set(i) }

// SetActive implements Editor.
func (e *BufferEditor) SetActive(on bool) {
	e.mu.Lock()
	changed := e.active != on
	e.active = on
	fn := e.onSet
	e.mu.Unlock()
	if changed && fn != nil {
		fn(on)
	}
}

// Active reports the markup-mode marker.
func (e *BufferEditor) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}
