// Package launcher starts the containerized automation server described by a
// LaunchSpec, blocks until its endpoint answers, and guarantees teardown
// exactly once no matter which path requests it.
package launcher

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"webpilot/internal/apperrors"
	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

var _ output.ServerLauncher = (*Launcher)(nil)

type Config struct {
	PollInterval   time.Duration
	StartupTimeout time.Duration
	StopGrace      time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   500 * time.Millisecond,
		StartupTimeout: 30 * time.Second,
		StopGrace:      5 * time.Second,
	}
}

type Launcher struct {
	spec   entity.LaunchSpec
	cfg    Config
	logger output.LoggerPort
	httpc  *http.Client

	mu       sync.Mutex
	cmd      *exec.Cmd
	waitDone chan struct{}
	stopOnce sync.Once
	stopErr  error
}

func New(spec entity.LaunchSpec, cfg Config, logger output.LoggerPort) *Launcher {
	return &Launcher{
		spec:   spec,
		cfg:    cfg,
		logger: logger,
		httpc:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Start spawns the server process and polls the ready URL until it answers.
// It never retries the spawn; that decision belongs to the caller. On a
// readiness timeout the spawned process is torn down before returning.
func (l *Launcher) Start(ctx context.Context) (*entity.ServerHandle, error) {
	l.mu.Lock()
	if l.cmd != nil {
		l.mu.Unlock()
		return nil, apperrors.New(apperrors.CodeLaunchFailure, "launcher already started")
	}

	cmd := exec.Command(l.spec.Command, l.spec.Args...)
	// Output is discarded: the server's own logs stay in its container.
	cmd.Stdout = nil
	cmd.Stderr = nil

	l.logger.Info("Starting automation server", "command", l.spec.Command, "args", l.spec.Args)

	if err := cmd.Start(); err != nil {
		l.mu.Unlock()
		return nil, apperrors.Wrap(apperrors.CodeLaunchFailure, err,
			fmt.Sprintf("spawn %s", l.spec.Command))
	}

	l.cmd = cmd
	l.waitDone = make(chan struct{})
	l.mu.Unlock()

	// Reap the process as soon as it exits so Stop never blocks on a zombie.
	go func() {
		_ = cmd.Wait()
		close(l.waitDone)
	}()

	handle := &entity.ServerHandle{
		Endpoint:  l.spec.ReadyURL,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}

	if err := l.awaitReady(ctx); err != nil {
		_ = l.Stop(handle)
		return nil, err
	}

	l.logger.Info("Automation server is reachable", "endpoint", handle.Endpoint, "pid", handle.PID)
	return handle, nil
}

// awaitReady polls the endpoint at fixed intervals. Any HTTP response counts
// as reachable; only transport-level failures mean the server is not up yet.
func (l *Launcher) awaitReady(ctx context.Context) error {
	deadline := time.Now().Add(l.cfg.StartupTimeout)
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.spec.ReadyURL, nil)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStartupTimeout, err, "build readiness probe")
		}
		resp, err := l.httpc.Do(req)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		l.logger.Debug("Readiness probe failed", "endpoint", l.spec.ReadyURL, "error", err)

		if time.Now().After(deadline) {
			return apperrors.Newf(apperrors.CodeStartupTimeout,
				"server at %s not reachable within %s", l.spec.ReadyURL, l.cfg.StartupTimeout)
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.CodeStartupTimeout, ctx.Err(), "readiness wait canceled")
		case <-ticker.C:
		}
	}
}

// Stop requests graceful termination, waits StopGrace, then kills. Safe to
// call any number of times and from concurrent error paths; only the first
// call does work.
func (l *Launcher) Stop(_ *entity.ServerHandle) error {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		cmd, waitDone := l.cmd, l.waitDone
		l.mu.Unlock()

		if cmd == nil || cmd.Process == nil {
			return
		}

		l.logger.Info("Stopping automation server", "pid", cmd.Process.Pid)

		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			// Already gone; nothing left to tear down.
			return
		}

		select {
		case <-waitDone:
		case <-time.After(l.cfg.StopGrace):
			l.logger.Warn("Server ignored SIGTERM, killing", "pid", cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				l.stopErr = fmt.Errorf("kill server process: %w", err)
				return
			}
			<-waitDone
		}
	})
	return l.stopErr
}
