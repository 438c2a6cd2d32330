// Package server implements the dev HTTP server: it serves the built
// output directory while the file watcher rebuilds in the background.
// The two coordinate only through the output directory on disk; builds
// publish atomically, so no lock is needed between writer and readers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/guidecraft/guidecraft/internal/builder"
	"github.com/guidecraft/guidecraft/internal/config"
	gerrors "github.com/guidecraft/guidecraft/internal/errors"
	"github.com/guidecraft/guidecraft/internal/logging"
	"github.com/guidecraft/guidecraft/internal/watcher"
)

// DevServer serves the output directory with live reload while the
// watcher rebuilds on source changes.
type DevServer struct {
	cfg     *config.Config
	builder *builder.Builder
	watcher *watcher.FileWatcher
	log     logging.Logger

	serverMu   sync.Mutex
	httpServer *http.Server

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	shutdownOnce sync.Once
}

// UpdateMessage is the payload broadcast to connected browsers after a
// successful rebuild.
type UpdateMessage struct {
	Type      string    `json:"type"`
	BuildID   string    `json:"build_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a dev server. Nothing is bound or built until Start.
func New(cfg *config.Config, b *builder.Builder, fw *watcher.FileWatcher, log logging.Logger) *DevServer {
	return &DevServer{
		cfg:     cfg,
		builder: b,
		watcher: fw,
		log:     log.WithComponent("server"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Start runs the server until ctx is cancelled or Shutdown is called:
// build once, start the watcher, bind the socket, then serve. Any
// failure before the accept loop is a startup failure returned to the
// caller; once serving, rebuild failures are logged and the previous
// artifact keeps being served.
func (s *DevServer) Start(ctx context.Context) error {
	if _, err := s.builder.Build(ctx); err != nil {
		return err
	}

	if err := s.setupWatcher(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return gerrors.FromBind("bind", s.cfg.Addr(), err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleStatic)

	s.serverMu.Lock()
	s.httpServer = &http.Server{Handler: s.logRequests(mux)}
	srv := s.httpServer
	s.serverMu.Unlock()

	s.log.Info(ctx, "serving", "addr", ln.Addr().String(), "dir", s.cfg.Site.OutputDir)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *DevServer) setupWatcher(ctx context.Context) error {
	s.watcher.AddFilter(watcher.NoHiddenFilter)

	if err := s.watcher.WatchFile(s.cfg.Site.Source); err != nil {
		return err
	}
	if err := s.watcher.WatchDir(s.cfg.Site.GuidesDir); err != nil {
		return err
	}
	if tmpl := s.cfg.Site.ManifestTemplate; tmpl != "" {
		if _, err := os.Stat(tmpl); err == nil {
			if err := s.watcher.WatchFile(tmpl); err != nil {
				return err
			}
		}
	}

	s.watcher.Start(ctx, s.onChange)
	return nil
}

// onChange runs on the watcher's rebuild goroutine, once per settled
// burst. A failed rebuild keeps the previous artifact set in place.
func (s *DevServer) onChange(ctx context.Context, events []watcher.ChangeEvent) {
	s.log.Info(ctx, "change detected, rebuilding", "events", len(events))

	info, err := s.builder.Build(ctx)
	if err != nil {
		s.log.Warn(ctx, err, "rebuild failed, serving previous artifact")
		return
	}
	if info.Skipped {
		return
	}
	s.broadcastReload(ctx, info)
}

func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status    string       `json:"status"`
		LastBuild builder.Info `json:"last_build"`
	}{Status: "ok", LastBuild: s.builder.LastBuild()})
}

func (s *DevServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String())
	})
}

// Shutdown stops the watcher, disconnects live-reload clients and closes
// the listening socket. Safe to call more than once.
func (s *DevServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.log.Info(ctx, "shutting down")

		if err := s.watcher.Stop(); err != nil {
			s.log.Warn(ctx, err, "stopping watcher")
		}

		s.clientsMu.Lock()
		for conn := range s.clients {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]struct{})
		s.clientsMu.Unlock()

		s.serverMu.Lock()
		srv := s.httpServer
		s.serverMu.Unlock()
		if srv != nil {
			shutdownErr = srv.Shutdown(ctx)
		}
	})
	return shutdownErr
}
