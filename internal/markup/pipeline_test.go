package markup

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/highlight"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

// stubHighlighter renders recognizable markers instead of real HTML.
type stubHighlighter struct {
	mu      sync.Mutex
	inline  map[string]bool
	ensured [][]string
	blocks  []string
}

func (s *stubHighlighter) Block(code, lang, meta string) highlight.Block {
	s.mu.Lock()
	s.blocks = append(s.blocks, lang+"|"+meta)
	s.mu.Unlock()
	return highlight.Block{HTML: fmt.Sprintf("[block %s|%s|%s]", lang, meta, html.EscapeString(code)), Requested: lang, Language: lang}
}

func (s *stubHighlighter) Inline(code, lang string) (string, bool) {
	if !s.inline[lang] {
		return "", false
	}
	return fmt.Sprintf("[inline %s|%s]", lang, code), true
}

func (s *stubHighlighter) Ensure(_ context.Context, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, names)
}

func stubPipeline(inline ...string) (*Pipeline, *stubHighlighter) {
	hl := &stubHighlighter{inline: map[string]bool{}}
	for _, l := range inline {
		hl.inline[l] = true
	}
	return New(hl, WithLogger(logger.Discard())), hl
}

func enginePipeline(t *testing.T, langs ...string) *Pipeline {
	t.Helper()
	cfg := config.RenderConfig{Languages: langs, Themes: config.Themes{Light: "github", Dark: "monokai"}}
	e := highlight.New(cfg, highlight.BundledLoader{}, highlight.WithLogger(logger.Discard()))
	e.Start(context.Background())
	require.NoError(t, e.Wait(context.Background()))
	return New(e, WithLogger(logger.Discard()))
}

func TestRenderBasicMarkdown(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "# Title<br>some *em* and **strong**<br><br>- one<br>- two")
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>em</em>")
	assert.Contains(t, out, "<strong>strong</strong>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestRenderEmpty(t *testing.T) {
	p, _ := stubPipeline()
	assert.Equal(t, "", p.Render(context.Background(), ""))
}

func TestRenderTablesAndStrikethrough(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>1</td>")
	assert.Contains(t, out, "<del>gone</del>")
}

func TestRenderMark(t *testing.T) {
	p, _ := stubPipeline()
	assert.Equal(t, "<p>a <mark>b</mark> c</p>\n", p.Render(context.Background(), "a ==b== c"))
	assert.NotContains(t, p.Render(context.Background(), "a = b"), "<mark>")
}

func TestRenderAlert(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "> [!WARNING]\n> Mind the gap")
	assert.Contains(t, out, `<div class="markdown-alert markdown-alert-warning">`)
	assert.Contains(t, out, `<p class="markdown-alert-title">Warning</p>`)
	assert.Contains(t, out, "<p>Mind the gap</p>")
	assert.NotContains(t, out, "[!WARNING]")
	assert.NotContains(t, out, "<blockquote>")
}

func TestAlertNodeCarriesTypeAndTitle(t *testing.T) {
	p, _ := stubPipeline()
	src := []byte("> [!NOTE] Heads up\n> body\n")
	doc := p.md.Parser().Parse(text.NewReader(src))

	alert, ok := doc.FirstChild().(*Alert)
	require.True(t, ok, "first block is %T", doc.FirstChild())
	assert.Equal(t, KindAlert, alert.Kind())
	assert.Equal(t, ast.TypeBlock, alert.Type())
	assert.Equal(t, "note", alert.AlertType)
	assert.Equal(t, "Heads up", alert.Title)
}

func TestRenderPlainBlockquoteIsUntouched(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "> just a quote")
	assert.Contains(t, out, "<blockquote>")
	assert.NotContains(t, out, "markdown-alert")
}

func TestSanitizerDropsScript(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "<script>alert(1)</script>")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "alert(1)")
}

func TestSanitizerKeepsAllowedTags(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "this is <b>ok</b> and <kbd>Ctrl</kbd>")
	assert.Contains(t, out, "<b>ok</b>")
	assert.Contains(t, out, "<kbd>Ctrl</kbd>")

	out = p.Render(context.Background(), `x <span onclick="evil()">y</span>`)
	assert.NotContains(t, out, "<span")
	assert.Contains(t, out, "y")
}

func TestSanitizerDropsHTMLBlocks(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "<div>\nhidden\n</div>\n\nafter")
	assert.NotContains(t, out, "<div>")
	assert.Contains(t, out, "<p>after</p>")
}

func TestEntityEncodedHTMLIsSanitizedToo(t *testing.T) {
	p, _ := stubPipeline()
	out := p.Render(context.Background(), "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, out, "<script")
}

func TestFenceInfo(t *testing.T) {
	tests := []struct {
		info, lang, meta string
	}{
		{"", "text", ""},
		{"   ", "text", ""},
		{"go", "go", ""},
		{"go  {1,3}   title  here", "go", "{1,3} title here"},
	}
	for _, tt := range tests {
		lang, meta := FenceInfo(tt.info)
		assert.Equal(t, tt.lang, lang, tt.info)
		assert.Equal(t, tt.meta, meta, tt.info)
	}
}

func TestFenceGoesToHighlighter(t *testing.T) {
	p, hl := stubPipeline()
	out := p.Render(context.Background(), "```go {2}\na := 1\n\n\n```")
	assert.Contains(t, out, "[block go|{2}|a := 1]")
	assert.Equal(t, []string{"go|{2}"}, hl.blocks)
	assert.Equal(t, [][]string{{"go"}}, hl.ensured)
}

func TestFenceWithoutLanguageIsText(t *testing.T) {
	p, hl := stubPipeline()
	out := p.Render(context.Background(), "```\n<x>\n```")
	assert.Contains(t, out, "[block text||&lt;x&gt;]")
	assert.Empty(t, hl.ensured)
}

func TestInlineLangTag(t *testing.T) {
	p, hl := stubPipeline("js")

	out := p.Render(context.Background(), "call `x()`{js} now")
	assert.Equal(t, "<p>call [inline js|x()] now</p>\n", out)
	assert.Equal(t, [][]string{{"js"}}, hl.ensured)

	out = p.Render(context.Background(), "`x`{.JS}")
	assert.Equal(t, "<p>[inline js|x]</p>\n", out)
}

func TestInlineLangTagWithUnderscore(t *testing.T) {
	p, _ := stubPipeline("my_lang")

	out := p.Render(context.Background(), "`x`{my_lang} tail")
	assert.Equal(t, "<p>[inline my_lang|x] tail</p>\n", out)

	out = p.Render(context.Background(), "`x`{.my_lang_2}")
	assert.Equal(t, "<p><code>x</code></p>\n", out)

	out = p.Render(context.Background(), "`x`{my_lang}\nnext")
	assert.Equal(t, "<p>[inline my_lang|x]\nnext</p>\n", out)
}

func TestInlineLangTagUnknownIsPlain(t *testing.T) {
	p, _ := stubPipeline("js")
	assert.Equal(t, "<p><code>x</code></p>\n", p.Render(context.Background(), "`x`{bogus}"))
	assert.Equal(t, "<p><code>&lt;a&gt;</code> tail</p>\n", p.Render(context.Background(), "`<a>`{bogus} tail"))
}

func TestInlineWithoutTag(t *testing.T) {
	p, _ := stubPipeline("js")
	assert.Equal(t, "<p><code>x</code> {js}</p>\n", p.Render(context.Background(), "`x` {js}"))
	assert.Equal(t, "<p><code>a b</code></p>\n", p.Render(context.Background(), "`a\nb`"))
}

func TestLanguagesCollectsFencesAndTags(t *testing.T) {
	p, _ := stubPipeline()
	src := []byte("```Go\nx\n```\n\n`a`{rust} `b`{go} `c`{txt}\n\n```text\ny\n```\n")
	doc := p.md.Parser().Parse(text.NewReader(src))
	assert.Equal(t, []string{"go", "rust"}, Languages(doc, src))
}

type panicHighlighter struct{ stubHighlighter }

func (*panicHighlighter) Block(string, string, string) highlight.Block { panic("boom") }

func TestRenderRecoversFromPanic(t *testing.T) {
	p := New(&panicHighlighter{}, WithLogger(logger.Discard()))
	var out string
	require.NotPanics(t, func() { out = p.Render(context.Background(), "```go\n<x>\n```") })
	assert.True(t, strings.HasPrefix(out, "<p>"))
	assert.Contains(t, out, "&lt;x&gt;")
}

func TestRenderIsIdempotent(t *testing.T) {
	p := enginePipeline(t, "go", "json")
	in := "# T<br>```go {1}<br>package main<br>```<br>`{}`{json} and ==m==<br><br>> [!TIP]<br>> hi"
	assert.Equal(t, p.Render(context.Background(), in), p.Render(context.Background(), in))
}

func TestRenderJSONExample(t *testing.T) {
	p := enginePipeline(t, "json")

	front := p.Render(context.Background(), "```json\n{\"a\":1}\n```")
	assert.Contains(t, front, `<figure class="code-block chroma" data-lang="json">`)
	assert.Contains(t, front, `<span class="lang">json</span>`)
	assert.Contains(t, front, ">Reveal</button>")
	assert.Contains(t, front, ">Copy</button>")
	assert.Contains(t, front, `class="mi"`)

	assert.Equal(t, "", p.Render(context.Background(), ""))
}

func TestUnconfiguredLanguageUsesPlainText(t *testing.T) {
	p := enginePipeline(t, "json")
	for _, lang := range []string{"go", "bogus", "JSONX", "c++"} {
		out := p.Render(context.Background(), "```"+lang+"\nfunc main() { 1 }\n```")
		assert.Contains(t, out, `data-lang="text"`, lang)
		assert.NotContains(t, out, `class="mi"`, lang)
	}
}

func TestInlineTagWithEngine(t *testing.T) {
	p := enginePipeline(t, "json")

	out := p.Render(context.Background(), "`1`{json}")
	assert.Contains(t, out, `<code class="code-inline chroma" data-lang="json">`)

	out = p.Render(context.Background(), "`1`{bogus}")
	assert.Equal(t, "<p><code>1</code></p>\n", out)
}

func TestNotReadyEngineRendersPlainPre(t *testing.T) {
	e := highlight.New(config.RenderConfig{Languages: []string{"json"}}, highlight.BundledLoader{}, highlight.WithLogger(logger.Discard()))
	p := New(e, WithLogger(logger.Discard()))
	out := p.Render(context.Background(), "```json\n1\n```")
	assert.Equal(t, "<pre><code>1</code></pre>\n", out)
}

var _ ast.Node = (*Mark)(nil)
var _ ast.Node = (*Alert)(nil)
