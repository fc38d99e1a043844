// Package display renders a card's front and back fields into the review
// document.
package display

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/anki-md/internal/binder"
	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/dom"
	"github.com/ziadkadry99/anki-md/internal/logger"
	"github.com/ziadkadry99/anki-md/internal/markup"
)

// ErrNoTargets is returned when the document has neither a front nor a
// back target.
var ErrNoTargets = errors.New("display: document has no .front or .back target")

// Document classes and ids.
const (
	ConfigElementID = "anki-md-config"

	ClassWrapper   = "anki-md-wrapper"
	ClassCard      = "card"
	ClassFront     = "front"
	ClassBack      = "back"
	ClassRendered  = "anki-md-rendered"
	ClassCardless  = "cardless"
	ClassReady     = "ready"
	ClassNightMode = "night-mode"
)

// hostNightClasses are the body classes the host uses for dark mode.
var hostNightClasses = []string{"nightMode", "night_mode"}

// Renderer turns field text into HTML.
type Renderer interface {
	Render(ctx context.Context, field string) string
}

// ReadConfig resolves the render config for doc: the embedded config
// element wins, then global, then the defaults.
func ReadConfig(doc *dom.Document, global []byte) config.RenderConfig {
	if el := doc.FindID(ConfigElementID); el != nil {
		if text := doc.TextContent(el); text != "" {
			return config.Resolve([]byte(text))
		}
	}
	return config.Resolve(global)
}

// Card renders into one review document.
type Card struct {
	doc         *dom.Document
	pipe        Renderer
	cfg         config.RenderConfig
	binder      *binder.Binder
	prefersDark func() bool
	log         *log.Logger
}

// Option configures a Card.
type Option func(*Card)

// WithBinder attaches b to the card root on every render.
func WithBinder(b *binder.Binder) Option {
	return func(c *Card) { c.binder = b }
}

// WithPrefersDark reports the viewer's color-scheme preference.
func WithPrefersDark(fn func() bool) Option {
	return func(c *Card) { c.prefersDark = fn }
}

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Card) { c.log = l }
}

// NewCard returns a Card writing pipe's output into doc.
func NewCard(doc *dom.Document, pipe Renderer, cfg config.RenderConfig, opts ...Option) *Card {
	c := &Card{
		doc:         doc,
		pipe:        pipe,
		cfg:         cfg,
		prefersDark: func() bool { return false },
		log:         logger.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Document returns the document the card renders into.
func (c *Card) Document() *dom.Document { return c.doc }

// Render writes front and back into their targets. The back field is only
// rendered while the back side is showing; otherwise its target is
// cleared. Both renders run concurrently and each degrades on its own.
func (c *Card) Render(ctx context.Context, front, back string, showingBack bool) error {
	c.syncNightMode()

	wrapper := c.doc.Find(ClassWrapper)
	frontEl := c.doc.Find(ClassFront)
	backEl := c.doc.Find(ClassBack)
	if frontEl == nil && backEl == nil {
		return ErrNoTargets
	}
	if wrapper != nil {
		c.doc.AddClass(wrapper, ClassRendered)
	}

	var frontHTML, backHTML string
	var g errgroup.Group
	g.Go(func() error {
		frontHTML = c.pipe.Render(ctx, front)
		return nil
	})
	if showingBack {
		g.Go(func() error {
			backHTML = c.pipe.Render(ctx, back)
			return nil
		})
	}
	_ = g.Wait()

	if frontEl != nil {
		c.write(frontEl, frontHTML, front)
	}
	if backEl != nil {
		c.write(backEl, backHTML, back)
	}

	if c.binder != nil {
		if root := c.root(wrapper); root != nil {
			c.binder.Attach(root)
		}
	}
	if wrapper != nil {
		if c.cfg.Cardless {
			c.doc.AddClass(wrapper, ClassCardless)
		}
		c.doc.AddClass(wrapper, ClassReady)
	}
	return nil
}

func (c *Card) write(target *html.Node, out, field string) {
	if err := c.doc.SetInnerHTML(target, out); err != nil {
		c.log.Error("writing rendered field", "err", err)
		c.doc.SetText(target, markup.DecodeField(field))
	}
}

// root is the element code block clicks are delegated from.
func (c *Card) root(wrapper *html.Node) *html.Node {
	if card := c.doc.Find(ClassCard); card != nil {
		return card
	}
	if wrapper != nil {
		return wrapper
	}
	return c.doc.Body()
}

func (c *Card) syncNightMode() {
	root := c.doc.DocumentElement()
	if root == nil {
		return
	}
	dark := c.prefersDark()
	if body := c.doc.Body(); body != nil {
		for _, cls := range hostNightClasses {
			dark = dark || c.doc.HasClass(body, cls)
		}
	}
	c.doc.SetClass(root, ClassNightMode, dark)
}
