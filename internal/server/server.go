package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AliveText is the answer to liveness checks
const AliveText = "Bot is alive!"

// Options configures the routes of the server
type Options struct {
	Addr          string
	ExposeMetrics bool
	// WebhookPath and Webhook are mounted together when Webhook is non-nil
	WebhookPath string
	Webhook     http.Handler
}

// Server serves liveness, health, metrics and the gateway webhook
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// New builds the server without starting it
func New(opts Options, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      NewMux(opts),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewMux registers the routes
func NewMux(opts Options) *http.ServeMux {
	mux := http.NewServeMux()

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(AliveText))
	})

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if opts.ExposeMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	if opts.Webhook != nil {
		mux.Handle("POST "+opts.WebhookPath, opts.Webhook)
	}

	return mux
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
