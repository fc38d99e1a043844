package highlight

import (
	"bufio"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// NightModeClass scopes the dark theme's rules.
const NightModeClass = "night-mode"

// figureWrapper replaces chroma's <pre> wrapper. Blocks become a figure
// carrying the toolbar; inline spans become a single code element.
type figureWrapper struct {
	lang   string
	inline bool
}

func (w figureWrapper) Start(_ bool, _ string) string {
	lang := html.EscapeString(w.lang)
	if w.inline {
		return fmt.Sprintf(`<code class="code-inline chroma" data-lang="%s">`, lang)
	}
	return fmt.Sprintf(`<figure class="code-block chroma" data-lang="%s"><pre tabindex="0"><code>`, lang)
}

func (w figureWrapper) End(_ bool) string {
	if w.inline {
		return `</code>`
	}
	return `</code></pre>` + toolbar(w.lang) + `</figure>`
}

func toolbar(lang string) string {
	return `<figcaption class="toolbar">` +
		`<span class="lang">` + html.EscapeString(lang) + `</span>` +
		`<span class="actions">` +
		`<button type="button" class="toggle">Reveal</button>` +
		`<button type="button" class="copy">Copy</button>` +
		`</span></figcaption>`
}

// format tokenizes code with lexer and renders it. Panics from a lexer
// are returned as errors. Callers hold e.mu for reading.
func (e *Engine) format(code string, lexer chroma.Lexer, lang string, ranges [][2]int, inline bool) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("highlighting %s: %v", lang, r)
		}
	}()

	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenising %s: %w", lang, err)
	}
	tokens := it.Tokens()
	if inline {
		tokens = trimTrailingNewline(tokens)
	}

	opts := []chromahtml.Option{
		chromahtml.WithClasses(true),
		chromahtml.WithAllClasses(true),
		chromahtml.WithPreWrapper(figureWrapper{lang: lang, inline: inline}),
	}
	if len(ranges) > 0 {
		opts = append(opts, chromahtml.HighlightLines(ranges))
	}

	var buf bytes.Buffer
	if err := chromahtml.New(opts...).Format(&buf, e.style(), chroma.Literator(tokens...)); err != nil {
		return "", fmt.Errorf("formatting %s: %w", lang, err)
	}
	return buf.String(), nil
}

func trimTrailingNewline(tokens []chroma.Token) []chroma.Token {
	for len(tokens) > 0 {
		last := &tokens[len(tokens)-1]
		last.Value = strings.TrimRight(last.Value, "\n")
		if last.Value != "" {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// style is the light theme, or chroma's fallback when it failed to load.
// Callers hold e.mu for reading.
func (e *Engine) style() *chroma.Style {
	if s, ok := e.themes[e.cfg.Themes.Light]; ok {
		return s
	}
	return styles.Fallback
}

// CSS returns the stylesheet for the loaded themes: the light theme
// unscoped and the dark theme under .night-mode. A theme that failed to
// load contributes nothing.
func (e *Engine) CSS() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	formatter := chromahtml.New(chromahtml.WithClasses(true))
	var out strings.Builder
	if s, ok := e.themes[e.cfg.Themes.Light]; ok {
		var buf bytes.Buffer
		if err := formatter.WriteCSS(&buf, s); err == nil {
			out.Write(buf.Bytes())
		}
	}
	if s, ok := e.themes[e.cfg.Themes.Dark]; ok {
		var buf bytes.Buffer
		if err := formatter.WriteCSS(&buf, s); err == nil {
			out.WriteString(scopeCSS(buf.String(), "."+NightModeClass))
		}
	}
	return out.String()
}

// scopeCSS prefixes the selector of every rule line with scope. chroma
// writes one rule per line, optionally preceded by a comment.
func scopeCSS(css, scope string) string {
	var out strings.Builder
	sc := bufio.NewScanner(strings.NewReader(css))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		prefix := ""
		if i := strings.Index(line, "*/"); i >= 0 {
			prefix, line = line[:i+2]+" ", strings.TrimSpace(line[i+2:])
		}
		if strings.Contains(line, "{") {
			line = scope + " " + line
		}
		out.WriteString(prefix + line + "\n")
	}
	return out.String()
}

var metaRangeRE = regexp.MustCompile(`\{([\d,\s-]+)\}`)

// ParseMeta extracts line emphasis from a fence caption such as
// "{1,3-4}". Malformed parts are ignored.
func ParseMeta(meta string) [][2]int {
	m := metaRangeRE.FindStringSubmatch(meta)
	if m == nil {
		return nil
	}
	var ranges [][2]int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 1 {
			continue
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || end < start {
				continue
			}
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
