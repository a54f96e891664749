package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storysnap/pkg/logger"
)

// Server serves the gallery root as static files, with the index rebuilt on
// every request so new captures show up without running the indexer.
type Server struct {
	root      string
	picsDir   string
	indexName string
	logger    logger.Logger
	router    *chi.Mux
	http      *http.Server
}

// Stats mirrors the counters shown in the gallery header
type Stats struct {
	Dates  int    `json:"dates"`
	Images int    `json:"images"`
	Latest string `json:"latest"`
}

// NewServer creates a server for root. indexName is the index path the page fetches.
func NewServer(root, picsDir, indexName string, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Server{
		root:      root,
		picsDir:   picsDir,
		indexName: indexName,
		logger:    log.WithField("component", "gallery"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/stats", s.handleStats)
	r.Get("/"+indexName, s.handleIndex)
	r.Handle("/*", http.FileServer(http.Dir(root)))

	s.router = r
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("Gallery server listening", map[string]interface{}{"addr": addr})
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) scan() (Index, error) {
	idx, err := Scan(s.root, s.picsDir)
	if errors.Is(err, ErrNoPicsDir) {
		return Index{}, nil
	}
	return idx, err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.scan()
	if err != nil {
		s.logger.WithError(err).Error("Gallery scan failed")
		http.Error(w, "scan failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, idx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	idx, err := s.scan()
	if err != nil {
		http.Error(w, "scan failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, Stats{Dates: idx.Dates(), Images: idx.Images(), Latest: idx.Latest()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.DebugWithFields("HTTP request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
