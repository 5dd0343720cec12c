// Package server serves bundle output during development and tells connected
// pages to reload after every rebuild.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conneroisu/jsplus/internal/build"
	"github.com/conneroisu/jsplus/internal/config"
	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/version"
)

const (
	// ReloadPath is the websocket endpoint pages connect to.
	ReloadPath = "/__jsplus/reload"
	// ReloadScriptPath serves the client that listens on ReloadPath.
	ReloadScriptPath = "/__jsplus/reload.js"
)

// DevServer serves an output directory with live reload
type DevServer struct {
	config      config.ServeConfig
	outputDir   string
	entryBundle string
	logger      logging.Logger
	hub         *Hub
	gatherer    prometheus.Gatherer
	files       http.Handler

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// Option configures a DevServer.
type Option func(*DevServer)

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *DevServer) { s.gatherer = g }
}

// WithEntryBundle names the main bundle, relative to the output directory.
// It is loaded by the page generated when the output has no index.html.
func WithEntryBundle(rel string) Option {
	return func(s *DevServer) { s.entryBundle = filepath.ToSlash(rel) }
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Bundles   []string  `json:"bundles,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a dev server for outputDir.
func New(cfg config.ServeConfig, outputDir string, logger logging.Logger, opts ...Option) *DevServer {
	logger = logger.WithComponent("server")
	s := &DevServer{
		config:      cfg,
		outputDir:   outputDir,
		entryBundle: "index.js",
		logger:      logger,
		hub:         NewHub(logger, cfg.AllowedOrigins, cfg.Port),
		files:       http.FileServer(http.Dir(outputDir)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes wrapped in middleware.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ReloadPath, s.hub.handleWebSocket)
	mux.HandleFunc(ReloadScriptPath, handleReloadScript)
	mux.HandleFunc("/health", s.handleHealth)
	if s.config.Metrics && s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", s.handleStatic)

	return s.addMiddleware(mux)
}

// Start listens on the configured address and serves until ctx is done.
func (s *DevServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or Shutdown is called.
func (s *DevServer) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Dev server listening", "addr", "http://"+ln.Addr().String())
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes reload connections.
func (s *DevServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.hub.closeAll()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

// NotifyBuild tells connected pages about a finished rebuild. A failed build
// is reported to the browser console and pages keep their current code.
func (s *DevServer) NotifyBuild(result *build.Result, err error) {
	msg := UpdateMessage{Type: "reload", Timestamp: time.Now()}
	if err != nil {
		msg.Type = "build_error"
		msg.Content = err.Error()
	} else if result != nil {
		for _, info := range result.Bundles {
			msg.Bundles = append(msg.Bundles, s.relativePath(info.Path))
		}
	}
	s.broadcastMessage(msg)
}

// Clients returns the number of connected reload clients.
func (s *DevServer) Clients() int {
	return s.hub.ClientCount()
}

func (s *DevServer) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal message")
		data = []byte(`{"type":"reload"}`)
	}
	s.hub.Broadcast(data)
}

func (s *DevServer) relativePath(file string) string {
	rel, err := filepath.Rel(s.outputDir, file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"version": version.GetVersion(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *DevServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	name := path.Clean("/" + r.URL.Path)
	file := filepath.Join(s.outputDir, filepath.FromSlash(name))

	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
		if err != nil && name == "/" {
			s.serveDocument(w, []byte(defaultPage(s.entryBundle)))
			return
		}
	}

	if err == nil && !info.IsDir() && strings.EqualFold(filepath.Ext(file), ".html") {
		data, err := os.ReadFile(file)
		if err != nil {
			http.Error(w, "Failed to read page", http.StatusInternalServerError)
			return
		}
		s.serveDocument(w, data)
		return
	}

	s.files.ServeHTTP(w, r)
}

func (s *DevServer) serveDocument(w http.ResponseWriter, data []byte) {
	page, err := InjectReloadScript(data)
	if err != nil {
		s.logger.Warn(context.Background(), err, "Serving page without reload client")
		page = data
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *DevServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// isAllowedOrigin checks if the origin is in the allowed origins list
func (s *DevServer) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func defaultPage(entry string) string {
	return `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>jsplus</title></head>
<body><script src="/` + entry + `"></script></body>
</html>
`
}
