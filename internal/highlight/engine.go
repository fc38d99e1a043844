// Package highlight turns source text into themed HTML with chroma. An
// Engine owns every grammar and theme for the lifetime of the page; it loads
// the configured set once at Start and treats anything else as plain text.
package highlight

import (
	"context"
	"html"
	"slices"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/logger"
)

// Block is the result of highlighting a fenced block.
type Block struct {
	HTML      string
	Requested string // language as written in the fence
	Language  string // language actually used for tokenizing
	Fallback  bool   // plain text was used instead of Requested
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithOnDemand lets Ensure fetch grammars missing from the configured set.
func WithOnDemand(on bool) Option {
	return func(e *Engine) { e.onDemand = on }
}

// Engine is safe for concurrent use. Grammar and theme caches are
// append-only; nothing is evicted once loaded.
type Engine struct {
	cfg      config.RenderConfig
	loader   Loader
	log      *log.Logger
	onDemand bool

	startOnce sync.Once
	ready     chan struct{}
	fetches   singleflight.Group

	mu       sync.RWMutex
	grammars map[string]chroma.Lexer
	failed   map[string]bool
	themes   map[string]*chroma.Style
}

// New returns an Engine for cfg. Grammars are not loaded until Start.
func New(cfg config.RenderConfig, loader Loader, opts ...Option) *Engine {
	e := &Engine{
		cfg:      config.Normalize(cfg),
		loader:   loader,
		log:      logger.Logger,
		ready:    make(chan struct{}),
		grammars: make(map[string]chroma.Lexer),
		failed:   make(map[string]bool),
		themes:   make(map[string]*chroma.Style),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the normalized configuration the engine was built with.
func (e *Engine) Config() config.RenderConfig { return e.cfg }

// Start begins loading the configured grammars and themes in the
// background. Calling it again has no effect.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		go e.init(ctx)
	})
}

// Ready reports whether initialization has finished.
func (e *Engine) Ready() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until initialization finishes or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once initialization finishes.
func (e *Engine) Done() <-chan struct{} { return e.ready }

func (e *Engine) init(ctx context.Context) {
	defer close(e.ready)

	names := e.preloadNames()
	themeNames := []string{e.cfg.Themes.Light}
	if e.cfg.Themes.Dark != e.cfg.Themes.Light {
		themeNames = append(themeNames, e.cfg.Themes.Dark)
	}

	grammars := make([]chroma.Lexer, len(names))
	themes := make([]*chroma.Style, len(themeNames))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			lexer, err := e.loader.LoadGrammar(ctx, name)
			if err != nil {
				e.log.Warn("failed to load language", "name", name, "err", err)
				return nil
			}
			grammars[i] = lexer
			return nil
		})
	}
	for i, name := range themeNames {
		g.Go(func() error {
			style, err := e.loader.LoadTheme(ctx, name)
			if err != nil {
				e.log.Warn("failed to load theme", "name", name, "err", err)
				return nil
			}
			themes[i] = style
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, lexer := range grammars {
		if lexer == nil {
			e.failed[names[i]] = true
			continue
		}
		e.register(names[i], lexer)
	}
	for i, style := range themes {
		if style != nil {
			e.themes[themeNames[i]] = style
		}
	}
	e.log.Debug("highlighter ready", "languages", len(e.grammars), "themes", len(e.themes))
}

// preloadNames is the configured language list minus plain-text names and
// names outside the available set.
func (e *Engine) preloadNames() []string {
	var names []string
	for _, name := range e.cfg.Languages {
		name = strings.ToLower(name)
		if config.IsBuiltinTextLanguage(name) || !e.allowed(name) || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (e *Engine) allowed(name string) bool {
	if e.cfg.AvailableLanguages == nil {
		return true
	}
	for _, a := range e.cfg.AvailableLanguages {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// register indexes lexer under name, its canonical name and its aliases.
// Existing entries win. Callers hold e.mu.
func (e *Engine) register(name string, lexer chroma.Lexer) {
	keys := []string{name}
	if cfg := lexer.Config(); cfg != nil {
		keys = append(keys, strings.ToLower(cfg.Name), FileName(cfg.Name))
		for _, alias := range cfg.Aliases {
			keys = append(keys, strings.ToLower(alias))
		}
	}
	for _, k := range keys {
		if _, ok := e.grammars[k]; !ok && k != "" {
			e.grammars[k] = lexer
		}
	}
}

// Ensure fetches grammars for names that are neither loaded nor known to
// have failed. It is a no-op unless on-demand loading is enabled and
// initialization has finished.
func (e *Engine) Ensure(ctx context.Context, names []string) {
	if !e.onDemand || !e.Ready() {
		return
	}
	var g errgroup.Group
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if !e.needsFetch(name) {
			continue
		}
		g.Go(func() error {
			_, _, _ = e.fetches.Do(name, func() (any, error) {
				e.fetch(ctx, name)
				return nil, nil
			})
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) needsFetch(name string) bool {
	if name == "" || config.IsBuiltinTextLanguage(name) || !e.allowed(name) {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, loaded := e.grammars[name]
	return !loaded && !e.failed[name]
}

func (e *Engine) fetch(ctx context.Context, name string) {
	lexer, err := e.loader.LoadGrammar(ctx, name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.log.Warn("failed to load language", "name", name, "err", err)
		e.failed[name] = true
		return
	}
	e.register(name, lexer)
}

// Languages returns every name a loaded grammar answers to, sorted.
func (e *Engine) Languages() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.grammars))
	for k := range e.grammars {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// HasLanguage reports whether a grammar for name is loaded.
func (e *Engine) HasLanguage(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.grammars[strings.ToLower(name)]
	return ok
}

// Block highlights a fenced code block. Before initialization finishes it
// returns escaped text in a bare pre element. A language without a loaded
// grammar, or one whose grammar fails, is rendered as plain text. The
// caption's line ranges and /word/ highlights apply along with
// [!code focus|error|warning] notation comments in the code.
func (e *Engine) Block(code, lang, meta string) Block {
	name := strings.ToLower(strings.TrimSpace(lang))
	out := Block{Requested: lang, Language: name}
	if !e.Ready() {
		out.HTML = plainPre(code)
		out.Fallback = true
		return out
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	lexer, ok := e.lookup(lang)
	if !ok {
		if !config.IsBuiltinTextLanguage(name) {
			out.Language = "text"
			out.Fallback = true
		}
	}
	ranges := ParseMeta(meta)
	body, notes := parseNotations(code)

	res, err := e.format(body, lexer, out.Language, ranges, false)
	if err == nil {
		res = decorate(res, notes, ParseMetaWords(meta))
	}
	if err != nil && ok {
		e.log.Warn("highlighting failed, retrying as plain text", "lang", lang, "err", err)
		out.Language = "text"
		out.Fallback = true
		res, err = e.format(code, plainText(), out.Language, nil, false)
	}
	if err != nil {
		e.log.Error("plain text highlighting failed", "err", err)
		res = plainPre(code)
	}
	out.HTML = res
	return out
}

// Inline highlights a short span. It reports false when the language has no
// loaded grammar or highlighting fails, leaving the caller's plain code
// element in place.
func (e *Engine) Inline(code, lang string) (string, bool) {
	if !e.Ready() {
		return "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	lexer, ok := e.lookup(lang)
	if !ok {
		return "", false
	}
	res, err := e.format(code, lexer, strings.ToLower(strings.TrimSpace(lang)), nil, true)
	if err != nil {
		e.log.Warn("inline highlighting failed", "lang", lang, "err", err)
		return "", false
	}
	return res, true
}

// lookup finds a loaded grammar. Plain-text names and misses return the
// plain-text lexer with ok false. Callers hold e.mu.
func (e *Engine) lookup(lang string) (chroma.Lexer, bool) {
	name := strings.ToLower(strings.TrimSpace(lang))
	if config.IsBuiltinTextLanguage(name) {
		return plainText(), false
	}
	if lexer, ok := e.grammars[name]; ok {
		return lexer, true
	}
	return plainText(), false
}

// Theme returns a loaded theme by name.
func (e *Engine) Theme(name string) (*chroma.Style, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.themes[name]
	return s, ok
}

func plainText() chroma.Lexer {
	if l := lexers.Get("plaintext"); l != nil {
		return l
	}
	return lexers.Fallback
}

// plainPre is the markup used while the engine is not ready.
func plainPre(code string) string {
	return "<pre><code>" + html.EscapeString(code) + "</code></pre>"
}
