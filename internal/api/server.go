package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/tunerd/internal/infrastructure/config"
	"github.com/nerrad567/tunerd/internal/infrastructure/logging"
	"github.com/nerrad567/tunerd/internal/tuner"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// scanTimeout bounds a scan started from the API.
const scanTimeout = 30 * time.Second

// TunerService is the subset of *tuner.Manager the API uses.
type TunerService interface {
	Running() bool
	Devices() []tuner.DeviceInfo
	Device(identity string) (tuner.DeviceInfo, error)
	SetProperty(ctx context.Context, identity, id, value string) error
	RemoveDevice(ctx context.Context, identity string, forget bool) error
	FrontendStatus(ctx context.Context, identity string, index int) (string, error)
	Scan(ctx context.Context) tuner.ScanResult
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Tuners  TunerService
	Version string
}

// Server is the HTTP API server for tunerd.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	tuners  TunerService
	version string
	hub     *Hub
	scans   singleflight.Group

	// ctx outlives individual requests so a coalesced scan is not cut
	// short when its first caller disconnects.
	ctx    context.Context
	cancel context.CancelFunc

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies. The Hub is
// created immediately so it can be registered as a manager listener
// before Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Tuners == nil {
		return nil, fmt.Errorf("tuner service is required")
	}

	ws := deps.WS
	if ws.Path == "" {
		ws.Path = "/ws"
	}
	if ws.MaxMessageSize <= 0 {
		ws.MaxMessageSize = 8192
	}
	if ws.PingInterval <= 0 {
		ws.PingInterval = 30
	}
	if ws.PongTimeout <= 0 {
		ws.PongTimeout = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     deps.Config,
		wsCfg:   ws,
		logger:  deps.Logger,
		tuners:  deps.Tuners,
		version: deps.Version,
		hub:     NewHub(ws, deps.Logger),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Hub returns the WebSocket hub. Register it with the tuner manager to
// relay lifecycle events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine. Bind
// errors (port in use) are returned directly.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.hub.closeAll()
	}()

	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		var serveErr error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			serveErr = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			serveErr = s.server.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", serveErr)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.cancel()
	s.hub.closeAll()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
