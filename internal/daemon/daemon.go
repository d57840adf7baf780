// Package daemon provides the long-lived nightshift process. It owns the
// control socket, opens overnight run windows through the scheduler, and
// guarantees at most one processing run is in flight at a time.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nightshift-run/nightshift/internal/runner"
	"github.com/nightshift-run/nightshift/internal/scheduler"
	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// Sentinel errors for the daemon.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrRunActive is returned when a run is requested while one is in flight.
	ErrRunActive = errors.New("a processing run is already active")
)

// DefaultSocketName is the control socket file name under the config dir.
const DefaultSocketName = "nightshift.sock"

// Config holds the daemon settings.
type Config struct {
	// SocketPath is the unix control socket path.
	SocketPath string

	// ConfigDir is the directory for configuration files.
	ConfigDir string

	// WindowCron opens recurring run windows. Empty disables the
	// scheduler; runs then start only via the control socket.
	WindowCron string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration

	// Version is reported over the control socket.
	Version string
}

// Dependencies holds the collaborators the daemon drives. This enables
// dependency injection for testing.
type Dependencies struct {
	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// RunFunc executes one processing run. Required for run.start and
	// scheduled windows.
	RunFunc func(ctx context.Context) (*runner.Summary, error)

	// SessionStatus returns the current checkpoint snapshot, nil when no
	// session exists yet.
	SessionStatus func() *shiftlib.Checkpoint

	// Queue is the live job queue, exposed over queue.list.
	Queue *shiftlib.JobQueue

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error
}

// Daemon manages the nightshift process lifecycle.
type Daemon struct {
	cfg  *Config
	deps *Dependencies
	log  logger.Logger

	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	listener  net.Listener
	srv       *http.Server
	runActive bool

	lastSummary *runner.Summary
}

// New creates a daemon with the given configuration and dependencies.
func New(cfg *Config, deps *Dependencies, log logger.Logger) *Daemon {
	if cfg == nil {
		cfg = &Config{}
	}
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Daemon{cfg: cfg, deps: deps, log: log}
}

// Config returns the daemon's configuration.
func (d *Daemon) Config() *Config {
	return d.cfg
}

// Start begins serving the control socket and blocks until the context is
// canceled. Returns ErrAlreadyRunning if the daemon is already started.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.ctx = ctx

	// A crashed process leaves the socket file behind; a live one holds
	// the listener, so removal here is safe.
	_ = os.Remove(d.cfg.SocketPath)

	listener, err := d.deps.ListenerFactory("unix", d.cfg.SocketPath)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("listen on control socket: %w", err)
	}
	d.listener = listener
	d.srv = &http.Server{Handler: newRPCServer(d).handler()}
	d.running = true
	d.mu.Unlock()

	shiftlib.SafeGo(nil, nil, "control-socket", nil, func() {
		if serr := d.srv.Serve(listener); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			d.log.Error("control socket server: %v", serr)
		}
	})

	if d.cfg.WindowCron != "" {
		if err := d.startScheduler(ctx); err != nil {
			d.performShutdown()
			return err
		}
	}

	d.log.Info("daemon listening on %s", d.cfg.SocketPath)
	<-ctx.Done()

	d.cleanupOnStop()
	return ctx.Err()
}

// startScheduler registers the recurring overnight window.
func (d *Daemon) startScheduler(ctx context.Context) error {
	if !scheduler.ValidExpr(d.cfg.WindowCron) {
		return fmt.Errorf("invalid window cron %q", d.cfg.WindowCron)
	}
	next, err := scheduler.NextOccurrence(d.cfg.WindowCron, time.Now())
	if err != nil {
		return fmt.Errorf("compute first window: %w", err)
	}
	sched := scheduler.New(ctx, func(string) {
		if err := d.StartRun(); err != nil {
			d.log.Warning("scheduled window skipped: %v", err)
		}
	})
	sched.Add(scheduler.WindowEvent{
		WindowID:  "overnight",
		TriggerAt: next,
		CronExpr:  d.cfg.WindowCron,
	})
	d.log.Info("next run window at %s", next.Format(time.RFC3339))
	return nil
}

// StartRun launches one processing run in the background, scoped to the
// daemon's lifetime. At most one run is in flight; a second request gets
// ErrRunActive.
func (d *Daemon) StartRun() error {
	if d.deps.RunFunc == nil {
		return errors.New("no run function configured")
	}
	d.mu.Lock()
	if d.runActive {
		d.mu.Unlock()
		return ErrRunActive
	}
	d.runActive = true
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	shiftlib.SafeGo(nil, nil, "processing-run", func(interface{}) {
		d.mu.Lock()
		d.runActive = false
		d.mu.Unlock()
	}, func() {
		sum, err := d.deps.RunFunc(ctx)
		d.mu.Lock()
		d.runActive = false
		d.lastSummary = sum
		d.mu.Unlock()
		if err != nil {
			d.log.Error("processing run: %v", err)
		}
	})
	return nil
}

// RunActive reports whether a processing run is in flight.
func (d *Daemon) RunActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runActive
}

// LastSummary returns the most recent run summary, nil before the first
// run completes.
func (d *Daemon) LastSummary() *runner.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSummary
}

// Stop requests daemon termination from the control surface.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the timeout.
func (d *Daemon) Shutdown() error {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	if err := d.executeShutdownFunc(); err != nil {
		return err
	}
	d.performShutdown()
	return nil
}

// executeShutdownFunc runs the cleanup hook with a timeout if configured.
func (d *Daemon) executeShutdownFunc() error {
	if d.deps.ShutdownFunc == nil {
		return nil
	}
	if d.cfg.ShutdownTimeout <= 0 {
		// Cleanup errors must not block shutdown.
		_ = d.deps.ShutdownFunc()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- d.deps.ShutdownFunc() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d.cfg.ShutdownTimeout):
		d.performShutdown()
		return ErrShutdownTimeout
	}
}

// cleanupOnStop performs cleanup when the blocking Start loop exits.
func (d *Daemon) cleanupOnStop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.closeListener()
}

// performShutdown performs the final shutdown operations.
func (d *Daemon) performShutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	if d.cancel != nil {
		d.cancel()
	}
	d.closeListener()
}

// closeListener closes the socket listener. Caller must hold the mutex.
// Close errors are intentionally ignored as this is cleanup code.
func (d *Daemon) closeListener() {
	if d.srv != nil {
		_ = d.srv.Close()
		d.srv = nil
		d.listener = nil
	} else if d.listener != nil {
		_ = d.listener.Close()
		d.listener = nil
	}
	_ = os.Remove(d.cfg.SocketPath)
}

// IsRunning returns true if the daemon is currently running.
func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
