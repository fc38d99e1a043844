package highlight

import (
	"context"
	"errors"
	"sync"
	"testing/fstest"

	"github.com/alecthomas/chroma/v2"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

const tinyLexer = `<lexer>
  <config>
    <name>Tiny</name>
    <alias>tiny</alias>
    <alias>tn</alias>
  </config>
  <rules>
    <state name="root">
      <rule pattern="\d+"><token type="LiteralNumberInteger"/></rule>
      <rule pattern="\s+"><token type="TextWhitespace"/></rule>
      <rule pattern="[a-z]+"><token type="Keyword"/></rule>
      <rule pattern="."><token type="Text"/></rule>
    </state>
  </rules>
</lexer>`

const wrapLexer = `<lexer>
  <config>
    <name>Wrap</name>
    <alias>wrap</alias>
  </config>
  <rules>
    <state name="root">
      <rule pattern="(\[)(.*?)(\])"><bygroups><token type="Punctuation"/><using lexer="Tiny"/><token type="Punctuation"/></bygroups></rule>
      <rule pattern="[^\[]+"><token type="Text"/></rule>
    </state>
  </rules>
</lexer>`

const tinyStyle = `<style name="tinylight">
  <entry type="Background" style="bg:#ffffff"/>
  <entry type="Keyword" style="bold #0000ff"/>
</style>`

const tinyDarkStyle = `<style name="tinydark">
  <entry type="Background" style="#eeeeee bg:#111111"/>
  <entry type="Keyword" style="#ff8800"/>
</style>`

func assetFS() fstest.MapFS {
	return fstest.MapFS{
		"_lang-tiny.xml":       {Data: []byte(tinyLexer)},
		"_lang-wrap.xml":       {Data: []byte(wrapLexer)},
		"_theme-tinylight.xml": {Data: []byte(tinyStyle)},
		"_theme-tinydark.xml":  {Data: []byte(tinyDarkStyle)},
	}
}

func tinyConfig(langs ...string) config.RenderConfig {
	return config.RenderConfig{
		Languages: langs,
		Themes:    config.Themes{Light: "tinylight", Dark: "tinydark"},
	}
}

// readyEngine starts an engine over the fixture assets and waits for it.
func readyEngine(cfg config.RenderConfig, opts ...Option) *Engine {
	return readyEngineWith(cfg, NewFSLoader(assetFS()), opts...)
}

func readyEngineWith(cfg config.RenderConfig, loader Loader, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	e := New(cfg, loader, opts...)
	e.Start(context.Background())
	_ = e.Wait(context.Background())
	return e
}

// countingLoader records grammar requests and delegates to next.
type countingLoader struct {
	next Loader

	mu    sync.Mutex
	calls map[string]int
}

func newCountingLoader(next Loader) *countingLoader {
	return &countingLoader{next: next, calls: map[string]int{}}
}

func (c *countingLoader) LoadGrammar(ctx context.Context, name string) (chroma.Lexer, error) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
	return c.next.LoadGrammar(ctx, name)
}

func (c *countingLoader) LoadTheme(ctx context.Context, name string) (*chroma.Style, error) {
	return c.next.LoadTheme(ctx, name)
}

func (c *countingLoader) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// gateLoader blocks every request until release is closed.
type gateLoader struct {
	next    Loader
	release chan struct{}
}

func (g gateLoader) LoadGrammar(ctx context.Context, name string) (chroma.Lexer, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.next.LoadGrammar(ctx, name)
}

func (g gateLoader) LoadTheme(ctx context.Context, name string) (*chroma.Style, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.next.LoadTheme(ctx, name)
}

// brokenLexer fails every tokenization.
type brokenLexer struct{ chroma.Lexer }

func (brokenLexer) Tokenise(*chroma.TokeniseOptions, string) (chroma.Iterator, error) {
	return nil, errors.New("boom")
}

// panicLexer panics on every tokenization.
type panicLexer struct{ chroma.Lexer }

func (panicLexer) Tokenise(*chroma.TokeniseOptions, string) (chroma.Iterator, error) {
	panic("lexer exploded")
}

// staticLoader serves fixed grammars by name.
type staticLoader map[string]chroma.Lexer

func (s staticLoader) LoadGrammar(_ context.Context, name string) (chroma.Lexer, error) {
	if l, ok := s[name]; ok {
		return l, nil
	}
	return nil, ErrNotFound
}

func (staticLoader) LoadTheme(context.Context, string) (*chroma.Style, error) {
	return nil, ErrNotFound
}
