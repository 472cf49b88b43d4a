package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/extract"
	"github.com/dobromatch/dobromatch/pkg/search"
	"github.com/dobromatch/dobromatch/pkg/storage"
)

// StatsProvider reports catalogue statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) (storage.Stats, error)
}

type Server struct {
	Engine *search.Engine
	Source events.Source
	// Extractor backs /api/ask; nil disables it.
	Extractor *extract.Extractor
	// Stats backs /api/stats; nil disables it.
	Stats StatsProvider

	Username string
	Password string

	DefaultWindow int
	DefaultMax    int
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API Group
	mux.HandleFunc("GET /api/search", s.basicAuth(s.handleSearch))
	mux.HandleFunc("POST /api/ask", s.basicAuth(s.handleAsk))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		utils.Log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
