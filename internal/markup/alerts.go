package markup

import (
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindAlert is the node kind of a GitHub-style alert blockquote.
var KindAlert = ast.NewNodeKind("Alert")

// Alert replaces a blockquote whose first line is a marker such as
// [!NOTE]. AlertType is lowercase; Title is what the title paragraph shows.
type Alert struct {
	ast.BaseBlock
	AlertType string
	Title     string
}

// Kind implements ast.Node.
func (n *Alert) Kind() ast.NodeKind { return KindAlert }

// Dump implements ast.Node.
func (n *Alert) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"AlertType": n.AlertType, "Title": n.Title}, nil)
}

var alertMarkerRE = regexp.MustCompile(`^\[!(NOTE|TIP|IMPORTANT|WARNING|CAUTION)\]([^\n]*)$`)

var alertTitles = map[string]string{
	"note":      "Note",
	"tip":       "Tip",
	"important": "Important",
	"warning":   "Warning",
	"caution":   "Caution",
}

type alertTransformer struct{}

func (t *alertTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var quotes []*ast.Blockquote
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if bq, ok := n.(*ast.Blockquote); ok && entering {
			quotes = append(quotes, bq)
		}
		return ast.WalkContinue, nil
	})

	for _, bq := range quotes {
		para, ok := bq.FirstChild().(*ast.Paragraph)
		if !ok || para.Lines().Len() == 0 {
			continue
		}
		first := para.Lines().At(0)
		m := alertMarkerRE.FindSubmatch([]byte(strings.TrimSpace(string(first.Value(source)))))
		if m == nil {
			continue
		}
		kind := strings.ToLower(string(m[1]))
		alert := &Alert{AlertType: kind, Title: alertTitles[kind]}
		if custom := strings.TrimSpace(string(m[2])); custom != "" {
			alert.Title = custom
		}

		dropFirstLine(para, first.Stop)
		if para.ChildCount() == 0 {
			bq.RemoveChild(bq, para)
		}

		for c := bq.FirstChild(); c != nil; {
			next := c.NextSibling()
			alert.AppendChild(alert, c)
			c = next
		}
		bq.Parent().ReplaceChild(bq.Parent(), bq, alert)
	}
}

// dropFirstLine removes the inline nodes making up a paragraph's first
// line, which ends at stop in the source.
func dropFirstLine(para *ast.Paragraph, stop int) {
	for c := para.FirstChild(); c != nil; {
		next := c.NextSibling()
		if t, ok := c.(*ast.Text); ok {
			if t.Segment.Start >= stop {
				return
			}
			para.RemoveChild(para, c)
			if t.SoftLineBreak() || t.HardLineBreak() || t.Segment.Stop >= stop {
				return
			}
		} else {
			para.RemoveChild(para, c)
		}
		c = next
	}
}

type alertRenderer struct{}

func (r *alertRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAlert, r.renderAlert)
}

func (r *alertRenderer) renderAlert(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Alert)
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<div class="markdown-alert markdown-alert-` + n.AlertType + `">` + "\n")
	_, _ = w.WriteString(`<p class="markdown-alert-title">` + html.EscapeString(n.Title) + "</p>\n")
	return ast.WalkContinue, nil
}
