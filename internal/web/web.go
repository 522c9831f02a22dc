// Package web serves the upload, outline editor and download pages.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/convert"
	"github.com/thywilljoshua/notescan/internal/extract"
)

//go:embed templates/*.html
var templateFS embed.FS

// Model is what a configured language model offers: restructuring and
// reading handwriting.
type Model interface {
	ai.Restructurer
	ai.Transcriber
}

type Options struct {
	MaxUploadBytes int64
	SessionTTL     time.Duration
	// AI holds the server-wide model defaults; a key entered in the upload
	// form overrides APIKey for that session.
	AI      ai.Config
	Extract extract.Config

	NewModel     func(ctx context.Context, cfg ai.Config) (Model, error)
	NewExtractor func(cfg extract.Config, t extract.Transcriber) (convert.Extractor, error)
}

type Server struct {
	opts    Options
	store   *Store
	pages   *template.Template
	preview goldmark.Markdown
}

func New(opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.NewModel == nil {
		opts.NewModel = newGemini
	}
	if opts.NewExtractor == nil {
		opts.NewExtractor = newExtractor
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Server{
		opts:    opts,
		store:   NewStore(opts.SessionTTL),
		pages:   pages,
		preview: newPreview(),
	}, nil
}

func newGemini(ctx context.Context, cfg ai.Config) (Model, error) {
	g, err := ai.NewGemini(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newExtractor(cfg extract.Config, t extract.Transcriber) (convert.Extractor, error) {
	e, err := extract.New(cfg)
	if err != nil {
		return nil, err
	}
	e.Transcriber = t
	return e, nil
}

// model returns the restructurer and transcriber for a session. Without
// credentials it falls back to ai.Noop and no transcriber.
func (s *Server) model(ctx context.Context, apiKey string) (ai.Restructurer, extract.Transcriber, error) {
	cfg := s.opts.AI
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	m, err := s.opts.NewModel(ctx, cfg)
	if errors.Is(err, ai.ErrNotConfigured) {
		return ai.Noop{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return m, m, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("POST /sessions", s.createSession)
	mux.HandleFunc("GET /sessions/{id}", s.showSession)
	mux.HandleFunc("POST /sessions/{id}/outline", s.updateOutline)
	mux.HandleFunc("POST /sessions/{id}/revise", s.revise)
	mux.HandleFunc("POST /sessions/{id}/template", s.uploadTemplate)
	mux.HandleFunc("GET /sessions/{id}/download", s.download)
	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.store.Janitor(ctx, max(s.opts.SessionTTL/4, time.Minute))

	errc := make(chan error, 1)
	go func() {
		slog.Info("Listening.", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Server stopped.")
	return nil
}
