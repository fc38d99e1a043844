package highlight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var (
	// ErrNotFound is returned when a loader has no definition for a name.
	ErrNotFound = errors.New("highlight: resource not found")
	// ErrInvalidName is returned for names that cannot map to a file.
	ErrInvalidName = errors.New("highlight: invalid resource name")
)

// Loader fetches grammar and theme definitions by name. Implementations
// decide where definitions live: a directory, a web server, or the tables
// compiled into chroma.
type Loader interface {
	LoadGrammar(ctx context.Context, name string) (chroma.Lexer, error)
	LoadTheme(ctx context.Context, name string) (*chroma.Style, error)
}

// FileName normalizes a grammar or theme name into the stem used by asset
// files: lowercase, spaces replaced by underscores.
func FileName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// GrammarPath is the asset path of a grammar definition.
func GrammarPath(name string) string { return "_lang-" + FileName(name) + ".xml" }

// ThemePath is the asset path of a theme definition.
func ThemePath(name string) string { return "_theme-" + FileName(name) + ".xml" }

func validName(name string) bool {
	n := FileName(name)
	return n != "" && !strings.ContainsAny(n, `/\`) && !strings.Contains(n, "..")
}

// usingRE finds delegations such as <using lexer="CSS"/> in a grammar.
var usingRE = regexp.MustCompile(`<using\s+lexer="([^"]+)"`)

// UsingDeps returns the grammar names a definition delegates to.
func UsingDeps(def []byte) []string {
	var deps []string
	seen := map[string]bool{}
	for _, m := range usingRE.FindAllSubmatch(def, -1) {
		name := FileName(string(m[1]))
		if !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	return deps
}

// fetchFunc reads the raw bytes at an asset path.
type fetchFunc func(ctx context.Context, path string) ([]byte, error)

// xmlLoader parses chroma XML definitions obtained through fetch. Grammars
// share one registry so delegations resolve against grammars this loader
// has produced; missing delegation targets are fetched alongside.
type xmlLoader struct {
	fetch fetchFunc

	mu       sync.Mutex
	registry *chroma.LexerRegistry
	loaded   map[string]chroma.Lexer
}

func newXMLLoader(fetch fetchFunc) *xmlLoader {
	return &xmlLoader{
		fetch:    fetch,
		registry: chroma.NewLexerRegistry(),
		loaded:   make(map[string]chroma.Lexer),
	}
}

func (l *xmlLoader) LoadGrammar(ctx context.Context, name string) (chroma.Lexer, error) {
	return l.loadGrammar(ctx, FileName(name), map[string]bool{})
}

func (l *xmlLoader) loadGrammar(ctx context.Context, name string, seen map[string]bool) (chroma.Lexer, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	seen[name] = true

	l.mu.Lock()
	if lexer, ok := l.loaded[name]; ok {
		l.mu.Unlock()
		return lexer, nil
	}
	l.mu.Unlock()

	data, err := l.fetch(ctx, GrammarPath(name))
	if err != nil {
		return nil, fmt.Errorf("fetching grammar %s: %w", name, err)
	}
	lexer, err := chroma.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing grammar %s: %w", name, err)
	}

	l.mu.Lock()
	lexer.SetRegistry(l.registry)
	l.registry.Register(lexer)
	l.loaded[name] = lexer
	l.mu.Unlock()

	for _, dep := range UsingDeps(data) {
		if seen[dep] {
			continue
		}
		// A missing delegation target only degrades the embedded region.
		_, _ = l.loadGrammar(ctx, dep, seen)
	}
	return lexer, nil
}

func (l *xmlLoader) LoadTheme(ctx context.Context, name string) (*chroma.Style, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := l.fetch(ctx, ThemePath(name))
	if err != nil {
		return nil, fmt.Errorf("fetching theme %s: %w", name, err)
	}
	style, err := chroma.NewXMLStyle(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing theme %s: %w", name, err)
	}
	return style, nil
}

// NewFSLoader loads _lang-<name>.xml and _theme-<name>.xml from fsys.
func NewFSLoader(fsys fs.FS) Loader {
	return newXMLLoader(func(_ context.Context, path string) ([]byte, error) {
		data, err := fs.ReadFile(fsys, path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return data, err
	})
}

// NewHTTPLoader fetches the same file names relative to baseURL.
func NewHTTPLoader(baseURL string, client *http.Client) Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return newXMLLoader(func(ctx context.Context, path string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}

// BundledLoader serves the grammars and themes compiled into chroma.
type BundledLoader struct{}

// LoadGrammar implements Loader.
func (BundledLoader) LoadGrammar(_ context.Context, name string) (chroma.Lexer, error) {
	if lexer := lexers.Get(name); lexer != nil {
		return lexer, nil
	}
	return nil, fmt.Errorf("%w: grammar %q", ErrNotFound, name)
}

// LoadTheme implements Loader.
func (BundledLoader) LoadTheme(_ context.Context, name string) (*chroma.Style, error) {
	if style, ok := styles.Registry[strings.ToLower(name)]; ok {
		return style, nil
	}
	return nil, fmt.Errorf("%w: theme %q", ErrNotFound, name)
}

// ChainLoader tries each loader in turn and returns the first success.
type ChainLoader []Loader

// LoadGrammar implements Loader.
func (c ChainLoader) LoadGrammar(ctx context.Context, name string) (chroma.Lexer, error) {
	var errs []error
	for _, l := range c {
		lexer, err := l.LoadGrammar(ctx, name)
		if err == nil {
			return lexer, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(append(errs, fmt.Errorf("%w: grammar %q", ErrNotFound, name))...)
}

// LoadTheme implements Loader.
func (c ChainLoader) LoadTheme(ctx context.Context, name string) (*chroma.Style, error) {
	var errs []error
	for _, l := range c {
		style, err := l.LoadTheme(ctx, name)
		if err == nil {
			return style, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(append(errs, fmt.Errorf("%w: theme %q", ErrNotFound, name))...)
}
