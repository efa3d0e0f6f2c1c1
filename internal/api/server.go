package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-matterhub/internal/bridge"
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-matterhub/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BridgeReader is the read side of bridge.Bridge used by the API.
type BridgeReader interface {
	Endpoints() []bridge.EndpointInfo
	Endpoint(number uint16) (bridge.EndpointInfo, bool)
	EndpointForEntity(entityID string) (bridge.EndpointInfo, bool)
	Skipped(entityID string) (string, bool)
	Status() bridge.Status
}

// EntitySource looks up the latest Home Assistant snapshot of an entity.
// Satisfied by *homeassistant.Hub.
type EntitySource interface {
	Current(entityID string) (homeassistant.Snapshot, bool)
	Len() int
}

// ConnectionStatus reports the Home Assistant session state.
// Satisfied by *homeassistant.Client.
type ConnectionStatus interface {
	Status() homeassistant.Status
}

// HealthChecker is implemented by every infrastructure client
// (database.DB, mqtt.Client, influxdb.Client).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Bridge   BridgeReader
	Entities EntitySource

	// Optional.
	HomeAssistant ConnectionStatus
	History       bridge.AttributeHistoryRepository

	// Checks are run by /health, keyed by component name.
	Checks map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for the Matter hub.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	bridge   BridgeReader
	entities EntitySource
	ha       ConnectionStatus
	history  bridge.AttributeHistoryRepository
	checks   map[string]HealthChecker
	version  string
	started  time.Time
	server   *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, bridge, entities)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if deps.Entities == nil {
		return nil, fmt.Errorf("entity source is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		bridge:   deps.Bridge,
		entities: deps.Entities,
		ha:       deps.HomeAssistant,
		history:  deps.History,
		checks:   deps.Checks,
		version:  deps.Version,
		started:  time.Now(),
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: If the server has already been started
func (s *Server) Start(_ context.Context) error {
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
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

// HealthCheck verifies the API server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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
