package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pushqa/wpregress/pkg/runner"
	"github.com/pushqa/wpregress/pkg/status"
)

// serverStartupTimeout is the time to wait for bind errors before assuming the server is up.
const serverStartupTimeout = 100 * time.Millisecond

// DashboardConfig holds configuration for dashboard initialization.
type DashboardConfig struct {
	BaseLog runner.Logger // progress logger wrapped by the broadcaster
	Port    int
	BaseURL string
	Browser string
	Metrics http.Handler // optional prometheus handler
}

// Dashboard runs the web server in the background for the lifetime of ctx.
type Dashboard struct {
	cfg DashboardConfig
}

// NewDashboard creates a dashboard.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	return &Dashboard{cfg: cfg}
}

// Start creates the server and starts it in the background.
// returns the broadcaster to pass to the runner as both Logger and Listener.
func (d *Dashboard) Start(ctx context.Context) (*Broadcaster, error) {
	srv, err := NewServer(ServerConfig{Port: d.cfg.Port, BaseURL: d.cfg.BaseURL, Browser: d.cfg.Browser},
		NewBuffer(DefaultBufferSize), d.cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("create web server: %w", err)
	}

	errCh, err := startServerAsync(ctx, srv, d.cfg.Port)
	if err != nil {
		return nil, err
	}

	// late errors don't stop the run, the dashboard is supplementary
	go func() {
		if srvErr := <-errCh; srvErr != nil {
			d.cfg.BaseLog.Warn("web server error during run: %v", srvErr)
		}
	}()

	d.cfg.BaseLog.PrintPhase(status.PhaseSetup, "web dashboard: http://localhost:%d", d.cfg.Port)
	return NewBroadcaster(d.cfg.BaseLog, srv), nil
}

// startServerAsync starts srv in the background and waits briefly for startup errors.
func startServerAsync(ctx context.Context, srv *Server, port int) (chan error, error) {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("web server failed to start on port %d: %w", port, err)
		}
	case <-time.After(serverStartupTimeout):
	}
	return errCh, nil
}
