package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html><html><head><script id="cfg" type="application/json">{"a":1}</script></head>` +
	`<body><div class="card"><div class="front"></div><div class="back x"></div></div></body></html>`

func TestFindByClassAndID(t *testing.T) {
	d := MustParse(page)

	front := d.Find("front")
	require.NotNil(t, front)
	assert.Equal(t, "div", front.Data)
	assert.NotNil(t, d.Find("x"))
	assert.Nil(t, d.Find("missing"))

	cfg := d.FindID("cfg")
	require.NotNil(t, cfg)
	assert.Equal(t, `{"a":1}`, d.TextContent(cfg))
	assert.NotNil(t, d.Body())
}

func TestSetInnerHTMLReplacesChildren(t *testing.T) {
	d := MustParse(page)
	front := d.Find("front")

	require.NoError(t, d.SetInnerHTML(front, `<p>one</p>`))
	require.NoError(t, d.SetInnerHTML(front, `<p>two</p><p>three</p>`))
	assert.Equal(t, `<p>two</p><p>three</p>`, d.InnerHTML(front))
	assert.Equal(t, "twothree", d.TextContent(front))

	require.NoError(t, d.SetInnerHTML(front, ""))
	assert.Equal(t, "", d.InnerHTML(front))
}

func TestClassHelpers(t *testing.T) {
	d := MustParse(page)
	back := d.Find("back")

	assert.True(t, d.HasClass(back, "x"))
	assert.True(t, d.ToggleClass(back, "revealed"))
	assert.True(t, d.HasClass(back, "revealed"))
	assert.False(t, d.ToggleClass(back, "revealed"))
	assert.False(t, d.HasClass(back, "revealed"))

	d.AddClass(back, "x")
	assert.Equal(t, "back x", d.Attr(back, "class"))
	d.RemoveClass(back, "x")
	assert.Equal(t, "back", d.Attr(back, "class"))
}

func TestClosestAndContains(t *testing.T) {
	d := MustParse(page)
	front := d.Find("front")
	require.NoError(t, d.SetInnerHTML(front, `<figure class="code-block"><pre><code>x</code></pre><button class="copy">Copy</button></figure>`))

	btn := d.Find("copy")
	require.NotNil(t, btn)
	block := d.Closest(btn, "code-block")
	require.NotNil(t, block)
	assert.Equal(t, "figure", block.Data)
	assert.Same(t, btn, d.Closest(btn, "copy"))
	assert.Nil(t, d.Closest(btn, "back"))

	card := d.Find("card")
	assert.True(t, d.Contains(card, btn))
	assert.False(t, d.Contains(d.Find("back"), btn))

	code := d.FindTag(block, "code")
	require.NotNil(t, code)
	assert.Equal(t, "x", d.TextContent(code))
}

func TestAttrAndAppend(t *testing.T) {
	d := MustParse(page)
	body := d.Body()
	el, err := d.AppendHTML(body, `<div class="panel" hidden></div>`)
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "panel", d.Attr(el, "class"))

	d.RemoveAttr(el, "hidden")
	assert.NotContains(t, d.OuterHTML(el), "hidden")
	d.SetAttr(el, "hidden", "")
	assert.Contains(t, d.OuterHTML(el), "hidden")

	d.SetText(el, "<b>")
	assert.Equal(t, "&lt;b&gt;", d.InnerHTML(el))
	assert.Contains(t, d.Render(), `class="panel"`)
}

func TestFindAllAndFindIn(t *testing.T) {
	d := MustParse(page)
	card := d.Find("card")
	require.NoError(t, d.SetInnerHTML(d.Find("front"), `<i class="k">a</i><i class="k">b</i>`))
	assert.Len(t, d.FindAll("k"), 2)
	assert.Len(t, d.FindIn(card, "k"), 2)
	assert.Len(t, d.FindIn(d.Find("back"), "k"), 0)
}

func TestDocumentElementAndBody(t *testing.T) {
	doc := MustParse(page)

	root := doc.DocumentElement()
	require.NotNil(t, root)
	assert.Equal(t, "html", root.Data)

	doc.AddClass(root, "night-mode")
	assert.Contains(t, doc.Render(), `<html class="night-mode">`)
	assert.Equal(t, "body", doc.Body().Data)
	assert.NotNil(t, doc.FindTag(doc.Body(), "div"))
	assert.Nil(t, doc.FindTag(doc.Body(), "table"))
}

func TestHasAttr(t *testing.T) {
	d := MustParse(`<div id="p" hidden=""></div>`)
	n := d.FindID("p")
	if !d.HasAttr(n, "hidden") {
		t.Error("expected hidden attribute")
	}
	d.RemoveAttr(n, "hidden")
	if d.HasAttr(n, "hidden") {
		t.Error("hidden attribute should be gone")
	}
}
