// Package markup converts flashcard field text into sanitized HTML. It is a
// goldmark pipeline with tables, strikethrough, ==mark== and GitHub alerts;
// raw HTML is reduced to a small tag allow-list and code is delegated to a
// Highlighter.
package markup

import (
	"bytes"
	"context"
	"html"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/highlight"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

// Highlighter is the part of highlight.Engine the pipeline needs.
type Highlighter interface {
	Block(code, lang, meta string) highlight.Block
	Inline(code, lang string) (string, bool)
	Ensure(ctx context.Context, names []string)
}

// Pipeline renders field text. It is safe for concurrent use.
type Pipeline struct {
	hl  Highlighter
	md  goldmark.Markdown
	log *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New builds a Pipeline around hl.
func New(hl Highlighter, opts ...Option) *Pipeline {
	p := &Pipeline{hl: hl, log: logger.Logger}
	for _, opt := range opts {
		opt(p)
	}
	p.md = goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			MarkExtension,
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&inlineLangTransformer{}, 100),
				util.Prioritized(&alertTransformer{}, 200),
			),
		),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(
				util.Prioritized(&codeRenderer{hl: hl}, 100),
				util.Prioritized(&rawHTMLRenderer{}, 100),
				util.Prioritized(&alertRenderer{}, 100),
			),
		),
	)
	return p
}

// Render converts stored field text to HTML. It never fails: any parse or
// render problem yields the decoded text escaped inside a paragraph.
func (p *Pipeline) Render(ctx context.Context, field string) (out string) {
	src := []byte(DecodeField(field))
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("render panicked", "err", r)
			out = fallbackHTML(src)
		}
	}()

	doc := p.md.Parser().Parse(text.NewReader(src))
	if langs := Languages(doc, src); len(langs) > 0 {
		p.hl.Ensure(ctx, langs)
	}

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, src, doc); err != nil {
		p.log.Error("render failed", "err", err)
		return fallbackHTML(src)
	}
	return buf.String()
}

// Languages lists, lowercased and in document order, every language a
// parsed document asks for through fences or inline tags. Plain-text
// names are left out.
func Languages(doc ast.Node, source []byte) []string {
	var langs []string
	add := func(lang string) {
		lang = strings.ToLower(lang)
		if lang == "" || config.IsBuiltinTextLanguage(lang) || slices.Contains(langs, lang) {
			return
		}
		langs = append(langs, lang)
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.FencedCodeBlock:
			lang, _ := fenceInfo(n, source)
			add(lang)
		case *ast.CodeSpan:
			if lang, ok := InlineLang(n); ok {
				add(lang)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return langs
}

func fallbackHTML(src []byte) string {
	return "<p>" + html.EscapeString(string(src)) + "</p>"
}
