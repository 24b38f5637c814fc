// FILE: mavlog/src/internal/status/server.go
// Package status exposes recording statistics over HTTP.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mavlog/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
)

// Snapshot is the payload served at /status. The callback assembling it
// runs per request, so counters are read fresh each time.
type Snapshot struct {
	Output   map[string]any `json:"output"`
	Recorder map[string]any `json:"recorder"`
}

// SnapshotFunc gathers current statistics for a status request.
type SnapshotFunc func() Snapshot

// Server serves GET /status on a dedicated port.
type Server struct {
	host      string
	port      int
	snapshot  SnapshotFunc
	server    *fasthttp.Server
	startTime time.Time
	logger    *log.Logger
}

func NewServer(host string, port int, snapshot SnapshotFunc, logger *log.Logger) *Server {
	return &Server{
		host:     host,
		port:     port,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Start begins serving. It returns an error if the listener cannot be
// established within the startup window; the server then runs until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	fasthttpLogger := compat.NewFastHTTPAdapter(s.logger)

	s.server = &fasthttp.Server{
		Name:             fmt.Sprintf("mavlog/%s", version.Short()),
		Handler:          s.requestHandler,
		DisableKeepalive: false,
		Logger:           fasthttpLogger,
	}
	s.startTime = time.Now()

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("msg", "Status server starting",
			"component", "status",
			"addr", addr)
		if err := s.server.ListenAndServe(addr); err != nil {
			errChan <- err
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.ShutdownWithContext(shutdownCtx)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("status server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts the server down, waiting up to the given timeout for active
// requests to drain.
func (s *Server) Stop(timeout time.Duration) {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.server.ShutdownWithContext(ctx)
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != "/status" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}

	snap := s.snapshot()
	status := map[string]any{
		"service":        "mavlog",
		"version":        version.Short(),
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"output":         snap.Output,
		"recorder":       snap.Recorder,
	}

	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(status); err != nil {
		s.logger.Error("msg", "Failed to encode status response",
			"component", "status",
			"error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}
