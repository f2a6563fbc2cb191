package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"
)

//go:embed templates static
var content embed.FS

// replaySize is the number of events replayed to reconnecting clients sending Last-Event-ID.
const replaySize = 1000

// ServerConfig holds configuration for the web server.
type ServerConfig struct {
	Port    int    // port to listen on
	BaseURL string // site under test, shown in the header
	Browser string
}

// Server provides the dashboard HTTP endpoints.
type Server struct {
	cfg     ServerConfig
	buffer  *Buffer
	sse     *sse.Server
	metrics http.Handler
	tmpl    *template.Template
	srv     *http.Server

	pubMu sync.Mutex // keeps buffer order and stream order identical
}

// NewServer creates a dashboard server. metrics may be nil, then /metrics is not served.
func NewServer(cfg ServerConfig, buffer *Buffer, metrics http.Handler) (*Server, error) {
	replayer, err := sse.NewFiniteReplayer(replaySize, false)
	if err != nil {
		return nil, fmt.Errorf("create sse replayer: %w", err)
	}
	tmpl, err := template.ParseFS(content, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Server{
		cfg:     cfg,
		buffer:  buffer,
		sse:     &sse.Server{Provider: &sse.Joe{Replayer: replayer}},
		metrics: metrics,
		tmpl:    tmpl,
	}, nil
}

// Publish stores the event and streams it to connected clients.
// the event sequence number doubles as the SSE event id, so reconnects resume via Last-Event-ID.
func (s *Server) Publish(e Event) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	e = s.buffer.Add(e)
	data, err := e.JSON()
	if err != nil {
		return err
	}

	msg := &sse.Message{}
	msg.ID = sse.ID(strconv.FormatInt(e.Seq, 10))
	msg.Type = sse.Type(string(e.Type))
	msg.AppendData(string(data))
	if err := s.sse.Publish(msg); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

// Handler returns the dashboard routes.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /events", s.sse)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		return nil, fmt.Errorf("static filesystem: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	return mux, nil
}

// Start listens for HTTP requests, blocking until ctx is canceled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}()

	err = s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

// Stop closes SSE streams and shuts the HTTP server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// open event streams would otherwise hold Shutdown until the timeout
	if err := s.sse.Shutdown(ctx); err != nil && !errors.Is(err, sse.ErrProviderClosed) {
		return fmt.Errorf("shutdown sse: %w", err)
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

type templateData struct {
	BaseURL string
	Browser string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, templateData{BaseURL: s.cfg.BaseURL, Browser: s.cfg.Browser}); err != nil {
		http.Error(w, "template execution error", http.StatusInternalServerError)
	}
}

// handleHistory returns buffered events, optionally only those after ?since=<seq>
// and only those of one scenario with ?scenario=<key>.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}
	var events []Event
	if key := r.URL.Query().Get("scenario"); key != "" {
		events = s.buffer.ByScenario(key, since)
	} else {
		events = s.buffer.Since(since)
	}
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, events)
}

// handleSummary returns the live state of the latest run.
func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, Snapshot(s.buffer.All()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] failed to encode response: %v", err)
	}
}
