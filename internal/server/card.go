package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/anki-md/internal/binder"
	"github.com/ziadkadry99/anki-md/internal/clipboard"
	"github.com/ziadkadry99/anki-md/internal/display"
	"github.com/ziadkadry99/anki-md/internal/dom"
)

// cardPage mirrors the review document a card template produces.
const cardPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>anki-md</title>
<link rel="stylesheet" href="/theme.css"></head>
<body class="card%s"><script type="application/json" id="%s">%s</script>
<div class="%s"><div class="%s"></div><div class="%s"></div></div>
</body></html>`

// cardView is one rendered card document.
type cardView struct {
	card   *display.Card
	binder *binder.Binder
}

func (s *Server) newCardPage(night bool) (*dom.Document, error) {
	cfg, err := json.Marshal(s.render)
	if err != nil {
		return nil, fmt.Errorf("encoding render config: %w", err)
	}
	nightClass := ""
	if night {
		nightClass = " nightMode"
	}
	return dom.Parse(fmt.Sprintf(cardPage, nightClass, display.ConfigElementID, cfg,
		display.ClassWrapper, display.ClassFront, display.ClassBack))
}

// newCardView builds a card document whose copy controls write to clip and
// whose delayed label changes are reported through onChange.
func (s *Server) newCardView(night bool, clip clipboard.Clipboard, onChange func()) (*cardView, error) {
	doc, err := s.newCardPage(night)
	if err != nil {
		return nil, err
	}
	b := binder.New(doc, clip, binder.WithOnChange(onChange), binder.WithLogger(s.log))
	cfg := display.ReadConfig(doc, nil)
	card := display.NewCard(doc, s.pipe, cfg, display.WithBinder(b), display.WithLogger(s.log))
	return &cardView{card: card, binder: b}, nil
}

func (v *cardView) doc() *dom.Document { return v.card.Document() }

// root is the element code block controls are addressed under.
func (v *cardView) root() *html.Node {
	doc := v.doc()
	if n := doc.Find(display.ClassCard); n != nil {
		return n
	}
	return doc.Body()
}

func (v *cardView) side(class string) string {
	if n := v.doc().Find(class); n != nil {
		return v.doc().InnerHTML(n)
	}
	return ""
}

func (s *Server) renderCard(ctx context.Context, v *cardView, front, back string, backSide bool) error {
	if err := s.engine.Wait(ctx); err != nil {
		return err
	}
	return v.card.Render(ctx, front, back, backSide)
}

// handleCard serves a full card page: ?front=&back=&back_side=1&night=1.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := s.newCardView(q.Get("night") == "1", clipboard.None{}, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.renderCard(r.Context(), v, q.Get("front"), q.Get("back"), q.Get("back_side") == "1"); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(v.doc().Render()))
}

type renderRequest struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	BackSide bool   `json:"back_side"`
}

type renderResponse struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	v, err := s.newCardView(false, clipboard.None{}, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.renderCard(r.Context(), v, req.Front, req.Back, req.BackSide); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{
		Front: v.side(display.ClassFront),
		Back:  v.side(display.ClassBack),
	})
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(s.engine.CSS()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
