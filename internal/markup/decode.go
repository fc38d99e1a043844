package markup

import (
	"html"
	"regexp"
	"strings"
)

var brRE = regexp.MustCompile(`(?i)<br\s*/?>`)

// DecodeField turns stored field text into markup source: line-break
// elements become newlines, then entities are decoded.
func DecodeField(field string) string {
	return html.UnescapeString(brRE.ReplaceAllString(field, "\n"))
}

var fieldEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\n", "<br>")

// EncodeField is the inverse of DecodeField for plain text.
func EncodeField(text string) string {
	return fieldEscaper.Replace(text)
}
