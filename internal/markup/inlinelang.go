package markup

import (
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// langAttr is the attribute the inline language tag is stored under.
const langAttr = "lang"

var inlineTagRE = regexp.MustCompile(`(?s)^\{\.?([\w-]+)\}(.*)$`)

// inlineLangTransformer attaches a trailing {lang} or {.lang} tag to the
// code span it follows. The tag is matched against the text directly after
// the span up to the end of the line; goldmark may have split that text at
// delimiter characters such as '_', so contiguous text nodes are joined
// first.
type inlineLangTransformer struct{}

func (t *inlineLangTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var spans []*ast.CodeSpan
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if cs, ok := n.(*ast.CodeSpan); ok && entering {
			spans = append(spans, cs)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, cs := range spans {
		run := followingText(cs)
		if len(run) == 0 {
			continue
		}
		var joined []byte
		for _, n := range run {
			joined = append(joined, n.Segment.Value(source)...)
		}
		m := inlineTagRE.FindSubmatch(joined)
		if m == nil {
			continue
		}
		cs.SetAttributeString(langAttr, m[1])
		consume(run, len(joined)-len(m[2]))
	}
}

// followingText returns the text nodes after n that are contiguous in the
// source, ending at the first one that carries a line break.
func followingText(n ast.Node) []*ast.Text {
	var run []*ast.Text
	for c := n.NextSibling(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			break
		}
		if len(run) > 0 && run[len(run)-1].Segment.Stop != t.Segment.Start {
			break
		}
		run = append(run, t)
		if t.SoftLineBreak() || t.HardLineBreak() {
			break
		}
	}
	return run
}

// consume strips the first k bytes from run. Emptied nodes are removed
// unless they carry a line break.
func consume(run []*ast.Text, k int) {
	for _, t := range run {
		if k <= 0 {
			return
		}
		width := t.Segment.Len()
		if k < width {
			t.Segment = t.Segment.WithStart(t.Segment.Start + k)
			return
		}
		k -= width
		t.Segment = t.Segment.WithStart(t.Segment.Stop)
		if !t.SoftLineBreak() && !t.HardLineBreak() {
			t.Parent().RemoveChild(t.Parent(), t)
		}
	}
}

// InlineLang returns the language tag attached to a code span.
func InlineLang(cs *ast.CodeSpan) (string, bool) {
	v, ok := cs.AttributeString(langAttr)
	if !ok {
		return "", false
	}
	b, ok := v.([]byte)
	return string(b), ok
}
