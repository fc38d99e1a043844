// Package binder makes rendered code blocks interactive: the reveal toggle
// and the copy button inside each block's toolbar.
package binder

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/anki-md/internal/clipboard"
	"github.com/ziadkadry99/anki-md/internal/dom"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

// Class names the binder reads and writes.
const (
	ClassCodeBlock = "code-block"
	ClassToggle    = "toggle"
	ClassCopy      = "copy"
	ClassRevealed  = "revealed"
	ClassClipboard = "clipboard"
)

// Control labels.
const (
	LabelReveal = "Reveal"
	LabelHide   = "Hide"
	LabelCopy   = "Copy"
	LabelCopied = "Copied"
)

// CopiedDelay is how long the copy control shows LabelCopied.
const CopiedDelay = 1500 * time.Millisecond

// Action is what a click did.
type Action int

const (
	None Action = iota
	Toggled
	Copied
	ToggledAndCopied
)

// Binder tracks bound roots within one document.
type Binder struct {
	doc      *dom.Document
	clip     clipboard.Clipboard
	after    func(time.Duration, func())
	onChange func()
	log      *log.Logger

	mu    sync.Mutex
	roots map[*html.Node]struct{}
}

// Option configures a Binder.
type Option func(*Binder)

// WithAfterFunc replaces time.AfterFunc for the copied-label revert.
func WithAfterFunc(after func(time.Duration, func())) Option {
	return func(b *Binder) { b.after = after }
}

// WithOnChange registers fn to run after the binder mutates the document
// outside of Click, i.e. when the copied label reverts.
func WithOnChange(fn func()) Option {
	return func(b *Binder) { b.onChange = fn }
}

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Binder) { b.log = l }
}

// New returns a Binder for doc. A nil clip disables copying.
func New(doc *dom.Document, clip clipboard.Clipboard, opts ...Option) *Binder {
	if clip == nil {
		clip = clipboard.None{}
	}
	b := &Binder{
		doc:   doc,
		clip:  clip,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		log:   logger.Logger,
		roots: make(map[*html.Node]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach binds root. It reports false if root was already bound, in which
// case nothing changes.
func (b *Binder) Attach(root *html.Node) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.roots[root]; ok {
		return false
	}
	b.roots[root] = struct{}{}
	if b.clip.Available() {
		b.doc.AddClass(root, ClassClipboard)
	}
	return true
}

// Bound reports whether root has been attached.
func (b *Binder) Bound(root *html.Node) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.roots[root]
	return ok
}

// root returns the innermost bound root containing n.
func (b *Binder) root(n *html.Node) *html.Node {
	b.mu.Lock()
	roots := make([]*html.Node, 0, len(b.roots))
	for r := range b.roots {
		roots = append(roots, r)
	}
	b.mu.Unlock()

	var best *html.Node
	for _, r := range roots {
		if b.doc.Contains(r, n) && (best == nil || b.doc.Contains(best, r)) {
			best = r
		}
	}
	return best
}

// Click handles a click on target. Clicks outside a bound root or outside
// a code block are ignored.
func (b *Binder) Click(ctx context.Context, target *html.Node) Action {
	root := b.root(target)
	if root == nil {
		return None
	}
	block := b.doc.Closest(target, ClassCodeBlock)
	if block == nil || !b.doc.Contains(root, block) {
		return None
	}

	action := None
	if toggle := b.doc.Closest(target, ClassToggle); toggle != nil && b.doc.Contains(block, toggle) {
		label := LabelReveal
		if b.doc.ToggleClass(block, ClassRevealed) {
			label = LabelHide
		}
		b.doc.SetText(toggle, label)
		action = Toggled
	}

	if btn := b.doc.Closest(target, ClassCopy); btn != nil && b.doc.Contains(block, btn) {
		var text string
		if code := b.doc.FindTag(block, "code"); code != nil {
			text = b.doc.TextContent(code)
		}
		if err := b.clip.WriteText(ctx, text); err != nil {
			b.log.Warn("copy to clipboard failed", "err", err)
		}
		b.doc.SetText(btn, LabelCopied)
		b.after(CopiedDelay, func() {
			b.doc.SetText(btn, LabelCopy)
			if b.onChange != nil {
				b.onChange()
			}
		})
		if action == Toggled {
			action = ToggledAndCopied
		} else {
			action = Copied
		}
	}
	return action
}

// ClickControl clicks the control of the index-th code block under root.
// control is ClassToggle or ClassCopy.
func (b *Binder) ClickControl(ctx context.Context, root *html.Node, index int, control string) Action {
	blocks := b.doc.FindIn(root, ClassCodeBlock)
	if index < 0 || index >= len(blocks) {
		return None
	}
	controls := b.doc.FindIn(blocks[index], control)
	if len(controls) == 0 {
		return None
	}
	return b.Click(ctx, controls[0])
}
