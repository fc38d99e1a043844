package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/anki-md/internal/binder"
	"github.com/ziadkadry99/anki-md/internal/dom"
	"github.com/ziadkadry99/anki-md/internal/preview"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inbound is every message a client may send. Fields unused by a type are
// left zero.
type inbound struct {
	Type     string   `json:"type"`
	Front    string   `json:"front,omitempty"`
	Back     string   `json:"back,omitempty"`
	BackSide bool     `json:"back_side,omitempty"`
	Night    bool     `json:"night,omitempty"`
	Block    int      `json:"block,omitempty"`
	Control  string   `json:"control,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Index    int      `json:"index,omitempty"`
	Value    string   `json:"value,omitempty"`
}

// outbound is every message the server pushes.
type outbound struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	HTML      string `json:"html,omitempty"`
	Text      string `json:"text,omitempty"`
	Action    string `json:"action,omitempty"`
	Active    bool   `json:"active,omitempty"`
	Collapsed bool   `json:"collapsed,omitempty"`
	Visible   bool   `json:"visible,omitempty"`
	Content   string `json:"content,omitempty"`
}

// session is one WebSocket connection. Writes are serialized because
// timers and renders push from their own goroutines.
type session struct {
	id   string
	conn *websocket.Conn
	srv  *Server

	mu sync.Mutex
}

func (s *session) send(msg outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.srv.log.Debug("websocket write", "session", s.id, "err", err)
	}
}

func (s *session) sendError(message string) {
	s.send(outbound{Type: "error", SessionID: s.id, Content: message})
}

// sessions tracks open connections by id.
type sessions struct {
	mu   sync.Mutex
	open map[string]*session
}

func newSessions() *sessions {
	return &sessions{open: make(map[string]*session)}
}

func (ss *sessions) add(s *session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.open[s.id] = s
}

func (ss *sessions) remove(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.open, id)
}

func (ss *sessions) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.open)
}

// Clipboard writes text to the client's clipboard by message.
type Clipboard struct {
	sess *session
}

// Available implements clipboard.Clipboard.
func (c *Clipboard) Available() bool { return true }

// WriteText implements clipboard.Clipboard.
func (c *Clipboard) WriteText(_ context.Context, text string) error {
	c.sess.send(outbound{Type: "clipboard", SessionID: c.sess.id, Text: text})
	return nil
}

// open upgrades the request and registers the session. The caller must
// call close.
func (s *Server) open(w http.ResponseWriter, r *http.Request) (*session, bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "err", err)
		return nil, false
	}
	sess := &session{id: uuid.NewString(), conn: conn, srv: s}
	s.sessions.add(sess)
	sess.send(outbound{Type: "session", SessionID: sess.id})
	return sess, true
}

func (s *Server) close(sess *session) {
	s.sessions.remove(sess.id)
	sess.conn.Close()
}

// readLoop decodes messages until the connection ends.
func (s *Server) readLoop(sess *session, handle func(inbound)) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read", "session", sess.id, "err", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError("invalid message format")
			continue
		}
		handle(msg)
	}
}

// handleCardSocket drives an interactive card. Messages:
//
//	{"type":"render","front":…,"back":…,"back_side":true,"night":false}
//	{"type":"click","block":0,"control":"toggle"|"copy"}
//
// Every change pushes {"type":"card","html":…} with the whole document.
func (s *Server) handleCardSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	defer s.close(sess)
	ctx := r.Context()

	var (
		mu   sync.Mutex
		view *cardView
	)
	push := func() {
		mu.Lock()
		v := view
		mu.Unlock()
		if v != nil {
			sess.send(outbound{Type: "card", SessionID: sess.id, HTML: v.doc().Render()})
		}
	}

	s.readLoop(sess, func(msg inbound) {
		switch msg.Type {
		case "render":
			v, err := s.newCardView(msg.Night, &Clipboard{sess: sess}, push)
			if err != nil {
				sess.sendError(err.Error())
				return
			}
			if err := s.renderCard(ctx, v, msg.Front, msg.Back, msg.BackSide); err != nil {
				sess.sendError(err.Error())
				return
			}
			mu.Lock()
			view = v
			mu.Unlock()
			push()
		case "click":
			mu.Lock()
			v := view
			mu.Unlock()
			if v == nil {
				sess.sendError("no card rendered")
				return
			}
			if msg.Control != binder.ClassToggle && msg.Control != binder.ClassCopy {
				sess.sendError("unknown control: " + msg.Control)
				return
			}
			if v.binder.ClickControl(ctx, v.root(), msg.Block, msg.Control) != binder.None {
				push()
			}
		default:
			sess.sendError("unknown message type: " + msg.Type)
		}
	})
}

// editorPage hosts the preview panel next to the editing fields.
const editorPage = `<!DOCTYPE html><html><head><meta charset="utf-8"></head>` +
	`<body><div id="editor"></div></body></html>`

// handlePreviewSocket drives a live preview for a remote editor. Messages:
//
//	{"type":"fields","fields":[…]}      set the note fields, editor is ready
//	{"type":"change","index":0,"value":…}
//	{"type":"focus","index":1}
//	{"type":"activate"} / {"type":"deactivate"}
//	{"type":"collapse"}
//
// Panel changes push {"type":"preview",…}; markup mode pushes {"type":"active"}.
func (s *Server) handlePreviewSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	defer s.close(sess)
	ctx, cancel := context.WithCancel(r.Context())

	doc := dom.MustParse(editorPage)
	panel := preview.NewDOMPanel(doc, doc.FindID("editor"))
	editor := preview.NewBufferEditor()
	toggler := preview.NewSingleton(editor, func() *preview.Controller {
		return preview.New(editor, panel, s.pipe,
			preview.WithStore(s.store),
			preview.WithDebounce(s.cfg.Debounce),
			preview.WithContext(ctx),
			preview.WithLogger(s.log))
	})

	panel.OnChange(func() {
		sess.send(outbound{
			Type:      "preview",
			SessionID: sess.id,
			HTML:      panel.HTML(),
			Visible:   panel.Visible(),
			Collapsed: panel.Collapsed(),
		})
	})
	editor.OnActive(func(on bool) {
		sess.send(outbound{Type: "active", SessionID: sess.id, Active: on})
	})

	// Activation waits for the editor, so it runs off the read loop. Only
	// the latest requested state is kept; the read loop never blocks on it.
	toggles := newToggleQueue()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			on, ok := toggles.next(ctx)
			if !ok {
				return
			}
			var err error
			if on {
				err = toggler.Activate(ctx)
			} else {
				err = toggler.Deactivate(ctx)
			}
			if err != nil && ctx.Err() == nil {
				sess.sendError(err.Error())
			}
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
		if c := toggler.Controller(); c != nil {
			c.Hide()
			c.Wait()
		}
	}()

	s.readLoop(sess, func(msg inbound) {
		switch msg.Type {
		case "fields":
			editor.SetFields(msg.Fields...)
			editor.MarkReady()
		case "change":
			editor.SetField(msg.Index, msg.Value)
		case "focus":
			editor.SetFocus(msg.Index)
		case "activate":
			toggles.request(true)
		case "deactivate":
			toggles.request(false)
		case "collapse":
			if c := toggler.Controller(); c != nil {
				c.ToggleCollapsed()
			}
		default:
			sess.sendError("unknown message type: " + msg.Type)
		}
	})
}

// toggleQueue holds the most recently requested markup-mode state for a
// single consumer. Requests made while the consumer is busy collapse into
// one.
type toggleQueue struct {
	mu   sync.Mutex
	want bool
	wake chan struct{}
}

func newToggleQueue() *toggleQueue {
	return &toggleQueue{wake: make(chan struct{}, 1)}
}

func (q *toggleQueue) request(on bool) {
	q.mu.Lock()
	q.want = on
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next blocks until a request is pending and returns the latest state. It
// reports false once ctx is done.
func (q *toggleQueue) next(ctx context.Context) (bool, bool) {
	select {
	case <-ctx.Done():
		return false, false
	case <-q.wake:
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.want, true
}
