// Package grammars manages the grammar and theme definitions kept in the
// asset directory. Definitions are chroma XML files downloaded from an
// upstream copy of chroma's sources and stored as _lang-<name>.xml and
// _theme-<name>.xml, the names the highlight loaders read.
package grammars

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/highlight"
	"github.com/ziadkadry99/anki-md/internal/logger"
	"github.com/ziadkadry99/anki-md/internal/progress"
)

// ErrNotFound is returned when upstream has no definition for a name.
var ErrNotFound = errors.New("grammars: definition not found upstream")

// Upstream directories holding lexer and style definitions.
const (
	lexerDir = "lexers/embedded"
	styleDir = "styles"
)

// Store reads and writes definitions in one asset directory.
type Store struct {
	dir      string
	upstream string
	client   *http.Client
	log      *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithUpstream sets the download URL template. The first %s is the
// upstream directory, the second the file stem.
func WithUpstream(format string) Option {
	return func(s *Store) { s.upstream = format }
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.client = c }
}

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a store for dir.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		upstream: config.DefaultUpstreamURL,
		client:   http.DefaultClient,
		log:      logger.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the asset directory.
func (s *Store) Dir() string { return s.dir }

// canonical maps an alias such as "golang" or "sh" to the file stem of the
// grammar it names upstream.
func canonical(name string) string {
	if lexer := lexers.Get(name); lexer != nil {
		return highlight.FileName(lexer.Config().Name)
	}
	return highlight.FileName(name)
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func (s *Store) fetch(ctx context.Context, dir, stem string) ([]byte, error) {
	url := fmt.Sprintf(s.upstream, dir, stem)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ankimd")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *Store) write(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating asset dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, path), data, 0o644)
}

// DownloadLang downloads a grammar under the requested name, then every
// grammar it delegates to under that grammar's own name.
func (s *Store) DownloadLang(ctx context.Context, name string) error {
	return s.downloadLang(ctx, highlight.FileName(name), map[string]bool{})
}

func (s *Store) downloadLang(ctx context.Context, name string, seen map[string]bool) error {
	if seen[name] {
		return nil
	}
	seen[name] = true
	if !validName(name) {
		return fmt.Errorf("%w: %q", highlight.ErrInvalidName, name)
	}

	data, err := s.fetch(ctx, lexerDir, canonical(name))
	if err != nil {
		return fmt.Errorf("downloading grammar %s: %w", name, err)
	}
	if _, err := chroma.Unmarshal(data); err != nil {
		return fmt.Errorf("parsing grammar %s: %w", name, err)
	}
	if err := s.write(highlight.GrammarPath(name), data); err != nil {
		return fmt.Errorf("saving grammar %s: %w", name, err)
	}
	s.log.Debug("downloaded grammar", "name", name)

	for _, dep := range highlight.UsingDeps(data) {
		if err := s.downloadLang(ctx, dep, seen); err != nil {
			return err
		}
	}
	return nil
}

// DownloadTheme downloads a theme definition.
func (s *Store) DownloadTheme(ctx context.Context, name string) error {
	stem := highlight.FileName(name)
	if !validName(stem) {
		return fmt.Errorf("%w: %q", highlight.ErrInvalidName, name)
	}
	data, err := s.fetch(ctx, styleDir, stem)
	if err != nil {
		return fmt.Errorf("downloading theme %s: %w", name, err)
	}
	if _, err := chroma.NewXMLStyle(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parsing theme %s: %w", name, err)
	}
	if err := s.write(highlight.ThemePath(stem), data); err != nil {
		return fmt.Errorf("saving theme %s: %w", name, err)
	}
	s.log.Debug("downloaded theme", "name", name)
	return nil
}

// NeedsRedownload reports whether a grammar, or any grammar it delegates
// to at any depth, is missing or unparseable.
func (s *Store) NeedsRedownload(name string) bool {
	stack := []string{highlight.FileName(name)}
	seen := map[string]bool{}
	for len(stack) > 0 {
		lang := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[lang] {
			continue
		}
		seen[lang] = true

		data, err := os.ReadFile(filepath.Join(s.dir, highlight.GrammarPath(lang)))
		if err != nil {
			return true
		}
		if _, err := chroma.Unmarshal(data); err != nil {
			return true
		}
		stack = append(stack, highlight.UsingDeps(data)...)
	}
	return false
}

func (s *Store) hasTheme(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, highlight.ThemePath(name)))
	return err == nil
}

func (s *Store) glob(prefix string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.dir), prefix+"*.xml")
	if err != nil {
		return nil, fmt.Errorf("listing %s in %s: %w", prefix, s.dir, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(m, prefix), ".xml"))
	}
	slices.Sort(names)
	return names, nil
}

// LocalLangs returns the sorted names of the grammars on disk.
func (s *Store) LocalLangs() ([]string, error) { return s.glob("_lang-") }

// LocalThemes returns the sorted names of the themes on disk.
func (s *Store) LocalThemes() ([]string, error) { return s.glob("_theme-") }

func (s *Store) deps(name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, highlight.GrammarPath(name)))
	if err != nil {
		return nil, err
	}
	return highlight.UsingDeps(data), nil
}

// CollectDeps returns every grammar name delegated to by a local grammar.
func (s *Store) CollectDeps() (map[string]bool, error) {
	langs, err := s.LocalLangs()
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, lang := range langs {
		deps, err := s.deps(lang)
		if err != nil {
			return nil, fmt.Errorf("reading grammar %s: %w", lang, err)
		}
		for _, d := range deps {
			out[d] = true
		}
	}
	return out, nil
}

// keep returns the configured grammars plus everything they reach through
// delegation.
func (s *Store) keep(cfg config.RenderConfig) map[string]bool {
	keep := map[string]bool{}
	var stack []string
	for _, lang := range cfg.Languages {
		stack = append(stack, highlight.FileName(lang))
	}
	for len(stack) > 0 {
		lang := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if keep[lang] {
			continue
		}
		keep[lang] = true
		deps, err := s.deps(lang)
		if err == nil {
			stack = append(stack, deps...)
		}
	}
	return keep
}

// Cleanup removes grammars and themes cfg does not use. Grammars reached
// through delegation from a used grammar are kept. It returns the removed
// file names.
func (s *Store) Cleanup(cfg config.RenderConfig) ([]string, error) {
	keep := s.keep(cfg)
	themes := map[string]bool{
		highlight.FileName(cfg.Themes.Light): true,
		highlight.FileName(cfg.Themes.Dark):  true,
	}

	langs, err := s.LocalLangs()
	if err != nil {
		return nil, err
	}
	localThemes, err := s.LocalThemes()
	if err != nil {
		return nil, err
	}

	var removed []string
	remove := func(path string) error {
		if err := os.Remove(filepath.Join(s.dir, path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		removed = append(removed, path)
		return nil
	}
	for _, lang := range langs {
		if !keep[lang] {
			if err := remove(highlight.GrammarPath(lang)); err != nil {
				return removed, err
			}
		}
	}
	for _, theme := range localThemes {
		if !themes[theme] {
			if err := remove(highlight.ThemePath(theme)); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

// Sync downloads configured grammars that are missing or broken and
// themes that are missing. Failures are collected, not fatal; the file
// names written are returned alongside them.
func (s *Store) Sync(ctx context.Context, cfg config.RenderConfig, report progress.Reporter) ([]string, []error) {
	if report == nil {
		report = progress.Nop{}
	}

	var langs []string
	for _, lang := range cfg.Languages {
		if !config.IsBuiltinTextLanguage(lang) && s.NeedsRedownload(lang) {
			langs = append(langs, lang)
		}
	}
	var themes []string
	for _, theme := range []string{cfg.Themes.Light, cfg.Themes.Dark} {
		if !slices.Contains(themes, theme) && !s.hasTheme(theme) {
			themes = append(themes, theme)
		}
	}

	var (
		downloaded []string
		errs       []error
		step       int
	)
	report.Start(len(langs) + len(themes))
	for _, lang := range langs {
		step++
		report.Update(step, highlight.GrammarPath(lang))
		if err := s.DownloadLang(ctx, lang); err != nil {
			s.log.Warn("failed to download language", "name", lang, "err", err)
			errs = append(errs, err)
			continue
		}
		downloaded = append(downloaded, highlight.GrammarPath(lang))
	}
	for _, theme := range themes {
		step++
		report.Update(step, highlight.ThemePath(theme))
		if err := s.DownloadTheme(ctx, theme); err != nil {
			s.log.Warn("failed to download theme", "name", theme, "err", err)
			errs = append(errs, err)
			continue
		}
		downloaded = append(downloaded, highlight.ThemePath(theme))
	}
	report.Finish()
	return downloaded, errs
}

// embeddedConfig is the JSON object written into card templates.
// AvailableLanguages is always present so an empty store disables
// highlighting instead of leaving it unconstrained.
type embeddedConfig struct {
	Languages          []string      `json:"languages"`
	AvailableLanguages []string      `json:"availableLanguages"`
	Themes             config.Themes `json:"themes"`
	Cardless           bool          `json:"cardless"`
}

// ConfigJSON renders cfg as the compact JSON embedded in card templates,
// with availableLanguages set to the grammars on disk.
func (s *Store) ConfigJSON(cfg config.RenderConfig) (string, error) {
	available, err := s.LocalLangs()
	if err != nil {
		return "", err
	}
	languages := cfg.Languages
	if languages == nil {
		languages = []string{}
	}
	data, err := json.Marshal(embeddedConfig{
		Languages:          languages,
		AvailableLanguages: available,
		Themes:             cfg.Themes,
		Cardless:           cfg.Cardless,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
