package preview

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/anki-md/internal/dom"
)

// Panel is where preview output goes.
type Panel interface {
	Show()
	Hide()
	SetCollapsed(collapsed bool)
	SetHTML(html string)
}

// Panel markup classes.
const (
	ClassPanel     = "anki-md-preview"
	ClassHeader    = "anki-md-preview-header"
	ClassToggle    = "anki-md-preview-toggle"
	ClassBody      = "anki-md-preview-body"
	ClassCollapsed = "collapsed"
)

const panelMarkup = `<div class="` + ClassPanel + `" hidden="">` +
	`<div class="` + ClassHeader + `"><span>Preview</span>` +
	`<button type="button" class="` + ClassToggle + `">Collapse</button></div>` +
	`<div class="` + ClassBody + `"></div></div>`

// DOMPanel renders the preview into a dom.Document. Its markup is appended
// to the parent on first Show.
type DOMPanel struct {
	doc    *dom.Document
	parent *html.Node

	mu       sync.Mutex
	root     *html.Node
	body     *html.Node
	toggle   *html.Node
	onChange func()
	onBody   func(*html.Node)
}

// NewDOMPanel returns a panel that will mount under parent.
func NewDOMPanel(doc *dom.Document, parent *html.Node) *DOMPanel {
	return &DOMPanel{doc: doc, parent: parent}
}

// OnChange registers fn to run after every DOM mutation.
func (p *DOMPanel) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// OnMount registers fn to receive the body element once it exists.
func (p *DOMPanel) OnMount(fn func(body *html.Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onBody = fn
}

// Mounted reports whether the panel markup exists.
func (p *DOMPanel) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root != nil
}

// Root returns the panel element, or nil before the first Show.
func (p *DOMPanel) Root() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root
}

// Visible reports whether the panel is mounted and not hidden.
func (p *DOMPanel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root != nil && !p.doc.HasAttr(p.root, "hidden")
}

// Collapsed reports whether the panel carries the collapsed class.
func (p *DOMPanel) Collapsed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root != nil && p.doc.HasClass(p.root, ClassCollapsed)
}

// Body returns the element preview HTML is written into.
func (p *DOMPanel) Body() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body
}

// ToggleButton returns the collapse control.
func (p *DOMPanel) ToggleButton() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggle
}

func (p *DOMPanel) mount() error {
	if p.root != nil {
		return nil
	}
	root, err := p.doc.AppendHTML(p.parent, panelMarkup)
	if err != nil {
		return fmt.Errorf("mounting preview panel: %w", err)
	}
	if root == nil {
		return fmt.Errorf("mounting preview panel: no element parsed")
	}
	p.root = root
	p.body = p.doc.FindIn(root, ClassBody)[0]
	p.toggle = p.doc.FindIn(root, ClassToggle)[0]
	if p.onBody != nil {
		p.onBody(p.body)
	}
	return nil
}

// Show implements Panel, mounting the markup on first use.
func (p *DOMPanel) Show() {
	p.mu.Lock()
	if err := p.mount(); err != nil {
		p.mu.Unlock()
		return
	}
	p.doc.RemoveAttr(p.root, "hidden")
	p.mu.Unlock()
	p.changed()
}

// Hide implements Panel.
func (p *DOMPanel) Hide() {
	p.mu.Lock()
	if p.root == nil {
		p.mu.Unlock()
		return
	}
	p.doc.SetAttr(p.root, "hidden", "")
	p.mu.Unlock()
	p.changed()
}

// SetCollapsed implements Panel.
func (p *DOMPanel) SetCollapsed(collapsed bool) {
	p.mu.Lock()
	if err := p.mount(); err != nil {
		p.mu.Unlock()
		return
	}
	p.doc.SetClass(p.root, ClassCollapsed, collapsed)
	label := "Collapse"
	if collapsed {
		label = "Expand"
	}
	p.doc.SetText(p.toggle, label)
	p.mu.Unlock()
	p.changed()
}

// SetHTML implements Panel.
func (p *DOMPanel) SetHTML(fragment string) {
	p.mu.Lock()
	if err := p.mount(); err != nil {
		p.mu.Unlock()
		return
	}
	if err := p.doc.SetInnerHTML(p.body, fragment); err != nil {
		p.doc.SetText(p.body, fragment)
	}
	p.mu.Unlock()
	p.changed()
}

// HTML returns the current preview body markup.
func (p *DOMPanel) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.body == nil {
		return ""
	}
	return p.doc.InnerHTML(p.body)
}

func (p *DOMPanel) changed() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}
