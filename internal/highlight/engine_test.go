package highlight

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/anki-md/internal/logger"
)

func TestBlockBeforeReadyIsEscapedPre(t *testing.T) {
	e := New(tinyConfig("tiny"), NewFSLoader(assetFS()), WithLogger(logger.Discard()))

	assert.False(t, e.Ready())
	b := e.Block("a < b", "tiny", "")
	assert.Equal(t, "<pre><code>a &lt; b</code></pre>", b.HTML)
	assert.True(t, b.Fallback)

	_, ok := e.Inline("x", "tiny")
	assert.False(t, ok)
}

func TestStartDoesNotBlock(t *testing.T) {
	gate := gateLoader{next: NewFSLoader(assetFS()), release: make(chan struct{})}
	e := New(tinyConfig("tiny"), gate, WithLogger(logger.Discard()))

	e.Start(context.Background())
	assert.False(t, e.Ready())
	assert.Contains(t, e.Block("1", "tiny", "").HTML, "<pre><code>")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)

	close(gate.release)
	require.NoError(t, e.Wait(context.Background()))
	assert.True(t, e.Ready())
	assert.Contains(t, e.Block("1", "tiny", "").HTML, `class="mi"`)
}

func TestStartIsIdempotent(t *testing.T) {
	counter := newCountingLoader(NewFSLoader(assetFS()))
	e := New(tinyConfig("tiny"), counter, WithLogger(logger.Discard()))
	e.Start(context.Background())
	e.Start(context.Background())
	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, 1, counter.count("tiny"))
}

func TestBlockHighlightsConfiguredLanguage(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))

	b := e.Block("let 42", "tiny", "")
	assert.False(t, b.Fallback)
	assert.Equal(t, "tiny", b.Language)
	assert.True(t, strings.HasPrefix(b.HTML, `<figure class="code-block chroma" data-lang="tiny">`))
	assert.Contains(t, b.HTML, `<span class="k">let</span>`)
	assert.Contains(t, b.HTML, `<span class="mi">42</span>`)
	assert.Contains(t, b.HTML, `<span class="lang">tiny</span>`)
	assert.Contains(t, b.HTML, `<button type="button" class="toggle">Reveal</button>`)
	assert.Contains(t, b.HTML, `<button type="button" class="copy">Copy</button>`)
	assert.True(t, strings.HasSuffix(b.HTML, "</figure>"))
}

func TestBlockResolvesAliasesCaseInsensitively(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))

	for _, lang := range []string{"TINY", "tn", "Tn"} {
		b := e.Block("7", lang, "")
		assert.False(t, b.Fallback, lang)
		assert.Contains(t, b.HTML, `class="mi"`, lang)
	}
}

func TestBlockUnknownLanguageFallsBackToText(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))

	b := e.Block("let <x> 42", "cobol", "")
	assert.True(t, b.Fallback)
	assert.Equal(t, "cobol", b.Requested)
	assert.Equal(t, "text", b.Language)
	assert.NotContains(t, b.HTML, `class="mi"`)
	assert.Contains(t, b.HTML, "&lt;x&gt;")
	assert.Contains(t, b.HTML, `<span class="lang">text</span>`)
}

func TestBlockPlainTextNamesAreNotFallbacks(t *testing.T) {
	e := readyEngine(tinyConfig())

	for _, lang := range []string{"text", "txt", "plain", "plaintext"} {
		b := e.Block("hello", lang, "")
		assert.False(t, b.Fallback, lang)
		assert.Equal(t, lang, b.Language)
		assert.Contains(t, b.HTML, "hello")
	}
}

func TestEmptyLanguageSetHighlightsNothing(t *testing.T) {
	e := readyEngine(tinyConfig())
	assert.Empty(t, e.Languages())
	assert.True(t, e.Block("42", "tiny", "").Fallback)
}

func TestFailedGrammarIsOmitted(t *testing.T) {
	e := readyEngine(tinyConfig("missing", "tiny"))

	assert.True(t, e.HasLanguage("tiny"))
	assert.False(t, e.HasLanguage("missing"))
	assert.True(t, e.Block("1", "missing", "").Fallback)
}

func TestAvailableLanguagesLimitsPreload(t *testing.T) {
	counter := newCountingLoader(NewFSLoader(assetFS()))
	cfg := tinyConfig("tiny", "wrap")
	cfg.AvailableLanguages = []string{"wrap"}
	e := readyEngineWith(cfg, counter)

	assert.Equal(t, 0, counter.count("tiny"))
	assert.False(t, e.HasLanguage("tiny"))
}

func TestTokenizeErrorRetriesAsPlainText(t *testing.T) {
	broken := brokenLexer{lexers.Get("go")}
	e := readyEngineWith(tinyConfig("go"), staticLoader{"go": broken})

	b := e.Block("x := <1>", "go", "{1}")
	assert.True(t, b.Fallback)
	assert.Equal(t, "text", b.Language)
	assert.Contains(t, b.HTML, "&lt;1&gt;")
	assert.Contains(t, b.HTML, `class="code-block chroma"`)
}

func TestLexerPanicIsRecovered(t *testing.T) {
	e := readyEngineWith(tinyConfig("go"), staticLoader{"go": panicLexer{lexers.Get("go")}})

	var b Block
	require.NotPanics(t, func() { b = e.Block("x", "go", "") })
	assert.True(t, b.Fallback)

	_, ok := e.Inline("x", "go")
	assert.False(t, ok)
}

func TestInline(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))

	out, ok := e.Inline("let 1", "tiny")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(out, `<code class="code-inline chroma" data-lang="tiny">`))
	assert.True(t, strings.HasSuffix(out, "</code>"))
	assert.Contains(t, out, `<span class="mi">1</span>`)
	assert.NotContains(t, out, "\n")
	assert.NotContains(t, out, "<pre")

	_, ok = e.Inline("x", "bogus")
	assert.False(t, ok)
	_, ok = e.Inline("x", "text")
	assert.False(t, ok)
}

func TestLineHighlightMeta(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))

	plain := e.Block("a\nb\nc", "tiny", "")
	marked := e.Block("a\nb\nc", "tiny", "{2}")
	assert.NotEqual(t, plain.HTML, marked.HTML)
	assert.Contains(t, marked.HTML, "hl")
}

func TestNotationAndWordMeta(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))

	b := e.Block("let 1\nfoo 2 // [!code focus]\nbar", "tiny", "/bar/")
	assert.NotContains(t, b.HTML, "[!code")
	assert.Contains(t, b.HTML, `<pre class="has-focused" tabindex="0">`)
	assert.Contains(t, b.HTML, `<span class="line focused">`)
	assert.Equal(t, 1, strings.Count(b.HTML, "focused\">"))
	assert.Contains(t, b.HTML, `<span class="highlighted-word">bar</span>`)
	assert.Contains(t, b.HTML, `<figcaption class="toolbar">`)
}

func TestBlockIsDeterministic(t *testing.T) {
	e := readyEngine(tinyConfig("tiny"))
	assert.Equal(t, e.Block("let 1\nfoo", "tiny", "x"), e.Block("let 1\nfoo", "tiny", "x"))
}

func TestEnsureFetchesOnDemandOnce(t *testing.T) {
	counter := newCountingLoader(NewFSLoader(assetFS()))
	e := readyEngineWith(tinyConfig(), counter, WithOnDemand(true))

	e.Ensure(context.Background(), []string{"Tiny", "nope", "text"})
	e.Ensure(context.Background(), []string{"tiny", "nope"})

	assert.True(t, e.HasLanguage("tiny"))
	assert.Equal(t, 1, counter.count("tiny"))
	assert.Equal(t, 1, counter.count("nope"))
	assert.Equal(t, 0, counter.count("text"))
}

func TestEnsureDisabledByDefault(t *testing.T) {
	counter := newCountingLoader(NewFSLoader(assetFS()))
	e := readyEngineWith(tinyConfig(), counter)

	e.Ensure(context.Background(), []string{"tiny"})
	assert.Equal(t, 0, counter.count("tiny"))
	assert.False(t, e.HasLanguage("tiny"))
}

func TestEnsureRespectsAvailableLanguages(t *testing.T) {
	counter := newCountingLoader(NewFSLoader(assetFS()))
	cfg := tinyConfig()
	cfg.AvailableLanguages = []string{"wrap"}
	e := readyEngineWith(cfg, counter, WithOnDemand(true))

	e.Ensure(context.Background(), []string{"tiny"})
	assert.Equal(t, 0, counter.count("tiny"))
}

func TestCSSScopesDarkTheme(t *testing.T) {
	e := readyEngine(tinyConfig())

	_, ok := e.Theme("tinylight")
	require.True(t, ok)
	_, ok = e.Theme("tinydark")
	require.True(t, ok)

	css := e.CSS()
	assert.Contains(t, css, ".night-mode ")
	assert.Contains(t, css, "#0000ff")
	assert.Contains(t, css, "#ff8800")
}

func TestCSSOmitsMissingTheme(t *testing.T) {
	cfg := tinyConfig()
	cfg.Themes.Dark = "absent"
	e := readyEngine(cfg)

	_, ok := e.Theme("absent")
	assert.False(t, ok)
	css := e.CSS()
	assert.Contains(t, css, "#0000ff")
	assert.NotContains(t, css, ".night-mode")
}

func TestBundledEngine(t *testing.T) {
	e := readyEngineWith(tinyConfig("go", "JSON"), BundledLoader{})

	b := e.Block(`{"a": 1}`, "json", "")
	assert.False(t, b.Fallback)
	assert.Contains(t, b.HTML, `class="mi"`)
	assert.True(t, e.HasLanguage("go"))
}
