package markup

import (
	"bytes"
	"html"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// defaultFenceLang is used when a fence has no info string.
const defaultFenceLang = "text"

// codeRenderer sends fenced blocks and tagged code spans to the
// highlighter.
type codeRenderer struct {
	hl Highlighter
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFence)
	reg.Register(ast.KindCodeSpan, r.renderCodeSpan)
}

// FenceInfo splits a fence info string into language and caption.
func FenceInfo(info string) (lang, meta string) {
	words := strings.Fields(info)
	if len(words) == 0 {
		return defaultFenceLang, ""
	}
	return words[0], strings.Join(words[1:], " ")
}

func fenceInfo(n *ast.FencedCodeBlock, source []byte) (string, string) {
	if n.Info == nil {
		return FenceInfo("")
	}
	return FenceInfo(string(n.Info.Segment.Value(source)))
}

func (r *codeRenderer) renderFence(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	lang, meta := fenceInfo(n, source)

	var code bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		code.Write(line.Value(source))
	}
	block := r.hl.Block(strings.TrimRightFunc(code.String(), unicode.IsSpace), lang, meta)
	_, _ = w.WriteString(block.HTML)
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

func (r *codeRenderer) renderCodeSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.CodeSpan)
	code := codeSpanText(n, source)

	if lang, ok := InlineLang(n); ok {
		if out, ok := r.hl.Inline(code, strings.ToLower(lang)); ok {
			_, _ = w.WriteString(out)
			return ast.WalkSkipChildren, nil
		}
	}
	_, _ = w.WriteString("<code>" + html.EscapeString(code) + "</code>")
	return ast.WalkSkipChildren, nil
}

// codeSpanText joins a code span's text, turning line endings into spaces.
func codeSpanText(n *ast.CodeSpan, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var value []byte
		switch t := c.(type) {
		case *ast.Text:
			value = t.Segment.Value(source)
		case *ast.String:
			value = t.Value
		default:
			continue
		}
		if bytes.HasSuffix(value, []byte("\n")) {
			b.Write(value[:len(value)-1])
			b.WriteByte(' ')
			continue
		}
		b.Write(value)
	}
	return b.String()
}
