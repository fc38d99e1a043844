// Package server exposes the renderer over HTTP: a card page, a JSON render
// API, the highlight stylesheet, the asset directory, and WebSocket
// sessions for interactive cards and the live editor preview.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/anki-md/internal/config"
	"github.com/ziadkadry99/anki-md/internal/db"
	"github.com/ziadkadry99/anki-md/internal/highlight"
	"github.com/ziadkadry99/anki-md/internal/logger"
	"github.com/ziadkadry99/anki-md/internal/markup"
	"github.com/ziadkadry99/anki-md/internal/preview"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AssetDir string        // served under /assets/
	Debounce time.Duration // preview render debounce
	AllowAll bool          // allow all CORS origins (dev mode)
}

// Server serves rendered cards and preview sessions.
type Server struct {
	cfg        Config
	render     config.RenderConfig
	engine     *highlight.Engine
	pipe       *markup.Pipeline
	store      preview.Store
	log        *log.Logger
	sessions   *sessions
	router     chi.Router
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the package logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server rendering through engine. The engine should already
// be started. A nil database keeps preview state in memory.
func New(cfg Config, engine *highlight.Engine, database *db.DB, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		render:   engine.Config(),
		engine:   engine,
		log:      logger.Logger,
		sessions: newSessions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pipe = markup.New(engine, markup.WithLogger(s.log))
	if database != nil {
		s.store = database
	} else {
		s.store = &preview.MemoryStore{}
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws/card", s.handleCardSocket)
	r.Get("/ws/preview", s.handlePreviewSocket)

	// Plain HTTP routes get a timeout; the sockets above are long-lived.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/", s.handleCard)
		r.Post("/api/render", s.handleRender)
		r.Get("/theme.css", s.handleCSS)
		if s.cfg.AssetDir != "" {
			fs := http.StripPrefix("/assets/", http.FileServer(http.Dir(s.cfg.AssetDir)))
			r.Get("/assets/*", fs.ServeHTTP)
		}
	})
	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Pipeline returns the markup pipeline requests render through.
func (s *Server) Pipeline() *markup.Pipeline { return s.pipe }

// Sessions returns the number of open WebSocket sessions.
func (s *Server) Sessions() int { return s.sessions.len() }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("ankimd server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := "loading"
	if s.engine.Ready() {
		state = "ready"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "highlighter": state})
}
