// Package server exposes a Player over HTTP for browser preview: the
// current frame as PNG, the processed sheet, playback state and parameter
// updates, sheet upload and generation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/internal/cache"
	spriteimage "github.com/gogpu/sprite/internal/image"
	"github.com/gogpu/sprite/internal/settings"
	"github.com/gogpu/sprite/provider"
)

// maxUpload caps the size of an uploaded sheet.
const maxUpload = 64 << 20

// maxEncoded bounds the number of encoded sheets and exports kept.
const maxEncoded = 16

// Server serves one Player.
type Server struct {
	player   *sprite.Player
	store    *settings.Store
	provider provider.Provider
	logger   *slog.Logger
	pool     *spriteimage.Pool
	encoded  *cache.Cache[string, []byte]
	router   chi.Router

	mu  sync.Mutex
	cur settings.Settings

	genMu      sync.Mutex
	generating bool
}

// Option configures a Server.
type Option func(*Server)

// WithStore persists parameter changes to st. The Server starts from the
// settings held by st.
func WithStore(st *settings.Store) Option {
	return func(s *Server) {
		s.store = st
		if st != nil {
			s.cur = st.Get()
		}
	}
}

// WithSettings sets the initial settings when no store is used.
func WithSettings(st settings.Settings) Option {
	return func(s *Server) {
		s.cur = st.Clamp()
	}
}

// WithProvider enables POST /api/generate.
func WithProvider(p provider.Provider) Option {
	return func(s *Server) {
		s.provider = p
	}
}

// WithLogger sets the request logger. The default is sprite.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server for p.
func New(p *sprite.Player, opts ...Option) *Server {
	s := &Server{
		player:  p,
		logger:  sprite.Logger(),
		pool:    spriteimage.NewPool(4),
		encoded: cache.New[string, []byte](maxEncoded),
		cur:     settings.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/frame.png", s.handleFrame)
	r.Get("/sheet.png", s.handleSheet)
	r.Get("/export.gif", s.handleExport)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/rows", s.handleRows)
		r.Get("/settings", s.handleSettings)
		r.Put("/params", s.handleParams)
		r.Post("/sheet", s.handleUpload)
		r.Delete("/sheet", s.handleClear)
		r.Post("/generate", s.handleGenerate)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.logger.Info("server: listening", "addr", addr)
	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("server: request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"bytes", ww.BytesWritten(), "elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("server: write response", "status", code, "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

// settings returns the current settings.
func (s *Server) settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// update applies fn to the settings, persists them when a store is set and
// pushes them to the Player.
func (s *Server) update(fn func(*settings.Settings)) (settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	if s.store != nil {
		var err error
		next, err = s.store.Update(func(st *settings.Settings) {
			*st = s.cur
			fn(st)
		})
		if err != nil {
			return s.cur, err
		}
	} else {
		fn(&next)
		next = next.Clamp()
	}
	s.cur = next
	settings.Apply(s.player, next)
	return next, nil
}

// queryInt returns the integer query parameter key, or def.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUpload+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUpload {
		return nil, errors.New("sheet too large")
	}
	return data, nil
}
