// Package dom is a small mutable document model over golang.org/x/net/html.
// It stands in for the display surface the renderer writes into: targets are
// found by class or id, fragments are parsed in place and the document can
// be serialized back to HTML at any time.
//
// Every Document method takes the document lock, so nodes returned by one
// call may be handed to the next from any goroutine.
package dom

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document guarded by a mutex.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// Parse parses a complete HTML document.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{root: root}, nil
}

// MustParse is Parse for static templates.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

// Find returns the first element carrying class, in document order.
func (d *Document) Find(class string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(d.root, func(n *html.Node) bool { return hasClass(n, class) })
}

// FindAll returns every element carrying class, in document order.
func (d *Document) FindAll(class string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findAll(d.root, func(n *html.Node) bool { return hasClass(n, class) })
}

// FindIn returns every element under parent carrying class.
func (d *Document) FindIn(parent *html.Node, class string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findAll(parent, func(n *html.Node) bool { return n != parent && hasClass(n, class) })
}

// FindID returns the element whose id attribute equals id.
func (d *Document) FindID(id string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(d.root, func(n *html.Node) bool { return attr(n, "id") == id })
}

// FindTag returns the first element named tag under parent (parent included).
func (d *Document) FindTag(parent *html.Node, tag string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(parent, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag })
}

// DocumentElement returns the html element.
func (d *Document) DocumentElement() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Html })
}

// Body returns the body element.
func (d *Document) Body() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

// Closest returns n or its nearest ancestor carrying class.
func (d *Document) Closest(n *html.Node, class string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return closest(n, class)
}

// Contains reports whether n is ancestor or a descendant of it.
func (d *Document) Contains(ancestor, n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// SetInnerHTML replaces n's children with the parsed fragment.
func (d *Document) SetInnerHTML(n *html.Node, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := html.ParseFragment(strings.NewReader(fragment), n)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// AppendHTML parses fragment and appends it to parent, returning the first
// element node added.
func (d *Document) AppendHTML(parent *html.Node, fragment string) (*html.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	var first *html.Node
	for _, c := range nodes {
		parent.AppendChild(c)
		if first == nil && c.Type == html.ElementNode {
			first = c
		}
	}
	return first, nil
}

// InnerHTML serializes n's children.
func (d *Document) InnerHTML(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML serializes n itself.
func (d *Document) OuterHTML(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// TextContent concatenates every text node under n.
func (d *Document) TextContent(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return textContent(n)
}

// SetText replaces n's children with a single text node.
func (d *Document) SetText(n *html.Node, s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// HasClass reports whether n carries class.
func (d *Document) HasClass(n *html.Node, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return hasClass(n, class)
}

// SetClass adds or removes class.
func (d *Document) SetClass(n *html.Node, class string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setClass(n, class, on)
}

// AddClass adds class to n.
func (d *Document) AddClass(n *html.Node, class string) { d.SetClass(n, class, true) }

// RemoveClass removes class from n.
func (d *Document) RemoveClass(n *html.Node, class string) { d.SetClass(n, class, false) }

// ToggleClass flips class and reports whether it is now present.
func (d *Document) ToggleClass(n *html.Node, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	on := !hasClass(n, class)
	setClass(n, class, on)
	return on
}

// Attr returns the value of attribute key, or "".
func (d *Document) Attr(n *html.Node, key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return attr(n, key)
}

// HasAttr reports whether n carries attribute key.
func (d *Document) HasAttr(n *html.Node, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.ContainsFunc(n.Attr, func(a html.Attribute) bool { return a.Namespace == "" && a.Key == key })
}

// SetAttr sets attribute key on n.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setAttr(n, key, val)
}

// RemoveAttr deletes attribute key from n.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool { return a.Key == key })
}

// Render serializes the whole document.
func (d *Document) Render() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

func closest(n *html.Node, class string) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hasClass(n, class) {
			return n
		}
	}
	return nil
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func classes(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(classes(n), class)
}

func setClass(n *html.Node, class string, on bool) {
	list := classes(n)
	has := slices.Contains(list, class)
	switch {
	case on && !has:
		list = append(list, class)
	case !on && has:
		list = slices.DeleteFunc(list, func(c string) bool { return c == class })
	default:
		return
	}
	setAttr(n, "class", strings.Join(list, " "))
}
