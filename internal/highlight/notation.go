package highlight

import (
	"html"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Line classes added by notation comments.
const (
	ClassFocused         = "focused"
	ClassHasFocused      = "has-focused"
	ClassHighlighted     = "highlighted"
	ClassHasHighlighted  = "has-highlighted"
	ClassHighlightedWord = "highlighted-word"
)

// notationRE matches a trailing comment such as "// [!code focus]" or
// "# [!code error:2]". The optional count extends it to following lines.
var notationRE = regexp.MustCompile(`\s*(?://|#|--|;|/\*|<!--)\s*\[!code (focus|error|warning)(?::(\d+))?\]\s*(?:\*/|-->)?\s*$`)

// notations maps 1-based line numbers to the classes their line gets.
type notations map[int][]string

// parseNotations removes notation comments from code. A line left empty
// by the removal is dropped and its notation moves to the next line.
func parseNotations(code string) (string, notations) {
	if !strings.Contains(code, "[!code ") {
		return code, nil
	}
	notes := notations{}
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		loc := notationRE.FindStringSubmatchIndex(line)
		if loc == nil {
			kept = append(kept, line)
			continue
		}
		kind := line[loc[2]:loc[3]]
		count := 1
		if loc[4] >= 0 {
			if n, err := strconv.Atoi(line[loc[4]:loc[5]]); err == nil && n > 0 {
				count = n
			}
		}
		stripped := line[:loc[0]]
		start := len(kept) + 1
		if strings.TrimSpace(stripped) != "" {
			kept = append(kept, stripped)
		}
		var classes []string
		switch kind {
		case "focus":
			classes = []string{ClassFocused}
		default:
			classes = []string{ClassHighlighted, kind}
		}
		for n := start; n < start+count; n++ {
			for _, c := range classes {
				if !slices.Contains(notes[n], c) {
					notes[n] = append(notes[n], c)
				}
			}
		}
	}
	return strings.Join(kept, "\n"), notes
}

var metaWordRE = regexp.MustCompile(`/((?:\\.|[^/\\])+)/`)

// ParseMetaWords extracts the words a fence caption asks to highlight,
// written between slashes as in "/name/ /other/". "\/" escapes a slash.
func ParseMetaWords(meta string) []string {
	var words []string
	for _, m := range metaWordRE.FindAllStringSubmatch(meta, -1) {
		w := strings.ReplaceAll(m[1], `\/`, `/`)
		if !slices.Contains(words, w) {
			words = append(words, w)
		}
	}
	return words
}

const (
	lineOpen = `<span class="line`
	preOpen  = `<pre tabindex="0">`
	codeEnd  = `</code></pre>`
)

// decorate applies notation classes and word highlights to formatted block
// HTML.
func decorate(out string, notes notations, words []string) string {
	if len(notes) == 0 && len(words) == 0 {
		return out
	}
	end := strings.Index(out, codeEnd)
	if end < 0 {
		return out
	}
	head, tail := out[:end], out[end:]

	if len(notes) > 0 {
		head = classifyLines(head, notes)
	}
	if len(words) > 0 {
		head = markWords(head, words)
	}
	return head + tail
}

func classifyLines(head string, notes notations) string {
	var (
		b        strings.Builder
		line     int
		focus    bool
		flagged  bool
		rest     = head
		preIndex = strings.Index(head, preOpen)
	)
	for {
		i := strings.Index(rest, lineOpen)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		line++
		b.WriteString(rest[:i+len(lineOpen)])
		rest = rest[i+len(lineOpen):]
		for _, c := range notes[line] {
			b.WriteString(" " + c)
			switch c {
			case ClassFocused:
				focus = true
			case ClassHighlighted:
				flagged = true
			}
		}
	}
	out := b.String()

	var pre []string
	if focus {
		pre = append(pre, ClassHasFocused)
	}
	if flagged {
		pre = append(pre, ClassHasHighlighted)
	}
	if len(pre) > 0 && preIndex >= 0 {
		out = out[:preIndex] + `<pre class="` + strings.Join(pre, " ") + `" tabindex="0">` + out[preIndex+len(preOpen):]
	}
	return out
}

var textRunRE = regexp.MustCompile(`>([^<]+)<`)

// markWords wraps every occurrence of words inside a token's text in a
// highlighted-word span. Matches never cross token boundaries.
func markWords(head string, words []string) string {
	sorted := slices.Clone(words)
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	wordRE := regexp.MustCompile(strings.Join(quoted, "|"))

	return textRunRE.ReplaceAllStringFunc(head, func(run string) string {
		raw := html.UnescapeString(run[1 : len(run)-1])
		locs := wordRE.FindAllStringIndex(raw, -1)
		if locs == nil {
			return run
		}
		var b strings.Builder
		b.WriteString(">")
		prev := 0
		for _, loc := range locs {
			b.WriteString(html.EscapeString(raw[prev:loc[0]]))
			b.WriteString(`<span class="` + ClassHighlightedWord + `">`)
			b.WriteString(html.EscapeString(raw[loc[0]:loc[1]]))
			b.WriteString(`</span>`)
			prev = loc[1]
		}
		b.WriteString(html.EscapeString(raw[prev:]))
		b.WriteString("<")
		return b.String()
	})
}
