// Package server exposes the pipeline to presentation clients over HTTP.
//
// GET /ws streams pipeline events as JSON text messages and accepts
// control commands. The REST endpoints return stats, recent results and
// the display settings; /metrics serves Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaz8081/stt-demo/internal/config"
	"github.com/chaz8081/stt-demo/internal/pipeline"
)

const (
	subscriberBuffer = 256
	writeWait        = 5 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	defaultResults   = 10
)

// Controller is the pipeline surface driven by clients.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Pause() error
	Resume() error
	ClearHistory()
	SetBackend(name string) error
	SetLanguage(lang string) error
	Stats() pipeline.Stats
	Recent(n int) []pipeline.Result
	Subscribe(buf int) (<-chan pipeline.Event, func())
}

// Server serves the event feed and the REST API.
type Server struct {
	ctrl     Controller
	gui      config.GUIConfig
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	upgrader websocket.Upgrader

	server    *http.Server
	startTime time.Time
	baseCtx   context.Context
}

// New creates a Server listening on addr. gatherer may be nil to serve the
// default Prometheus registry.
func New(addr string, ctrl Controller, gui config.GUIConfig, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:     ctrl,
		gui:      gui,
		gatherer: gatherer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The feed listens on loopback by default and serves local UIs
			// loaded from file:// or another port.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		startTime: time.Now(),
		baseCtx:   context.Background(),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully. Pipelines started by the "start" command run
// under ctx.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.baseCtx = ctx
	s.logger.Info("feed server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
		"state":  s.ctrl.Stats().State,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Stats())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	n := defaultResults
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a non-negative integer"})
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, s.ctrl.Recent(n))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"window_width":            s.gui.WindowWidth,
		"window_height":           s.gui.WindowHeight,
		"theme":                   s.gui.Theme,
		"font_size":               s.gui.FontSize,
		"visualization_update_ms": s.gui.VisualizationUpdateMS,
		"auto_save":               s.gui.AutoSave,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
