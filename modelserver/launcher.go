// Package modelserver manages the local model server as an owned child
// process: spawn it, wait until its HTTP surface answers, and shut it
// down when the session ends. Callers sequence these steps explicitly;
// nothing starts in the background on import.
package modelserver

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/internal/tlsutil"
)

// Config configures the launcher.
type Config struct {
	// Command is the server binary. Defaults to "ollama".
	Command string `yaml:"command" json:"command"`
	// Args passed to the command. Defaults to ["serve"].
	Args []string `yaml:"args" json:"args"`
	// HealthURL is polled by WaitReady. Defaults to
	// "http://localhost:11434/v1/models".
	HealthURL string `yaml:"health_url" json:"health_url"`
	// ReadyTimeout bounds WaitReady. Defaults to 30s.
	ReadyTimeout time.Duration `yaml:"ready_timeout" json:"ready_timeout"`
	// PollInterval between health probes. Defaults to 500ms.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	// StopTimeout is how long Stop waits after SIGTERM before SIGKILL.
	// Defaults to 5s.
	StopTimeout time.Duration `yaml:"stop_timeout" json:"stop_timeout"`
}

// Launcher owns one model server process.
type Launcher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan error
}

// NewLauncher creates a launcher with the given config.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if cfg.Command == "" {
		cfg.Command = "ollama"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"serve"}
	}
	if cfg.HealthURL == "" {
		cfg.HealthURL = "http://localhost:11434/v1/models"
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(5 * time.Second),
		logger: logger.With(zap.String("component", "modelserver")),
	}
}

// Running reports whether the launcher currently owns a live process.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

// Start spawns the server process. It does not wait for readiness;
// call WaitReady afterwards. Starting twice is an error.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return fmt.Errorf("model server already started (pid %d)", l.cmd.Process.Pid)
	}

	cmd := exec.Command(l.cfg.Command, l.cfg.Args...)
	// Own process group, so Stop can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("pipe model server stderr: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", l.cfg.Command, err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			l.logger.Debug("server output", zap.String("line", scanner.Text()))
		}
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	l.cmd = cmd
	l.done = done
	l.logger.Info("model server started",
		zap.String("command", l.cfg.Command),
		zap.Strings("args", l.cfg.Args),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

// WaitReady polls the health URL until it answers with a success
// status, the ready timeout lapses, or the context is cancelled. It
// also works against a server the launcher did not start; in that case
// process-exit detection is skipped.
func (l *Launcher) WaitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ReadyTimeout)
	defer cancel()

	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if l.probe(ctx) {
			l.logger.Info("model server ready", zap.String("health_url", l.cfg.HealthURL))
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("model server not ready at %s: %w", l.cfg.HealthURL, ctx.Err())
		case err := <-done:
			l.reap()
			return fmt.Errorf("model server exited before becoming ready: %w", err)
		case <-ticker.C:
		}
	}
}

func (l *Launcher) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.HealthURL, nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// Stop signals the process group with SIGTERM and reaps the process,
// escalating to SIGKILL after the stop timeout. Stopping a launcher
// that is not running is a no-op.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	cmd := l.cmd
	done := l.done
	l.mu.Unlock()

	if cmd == nil {
		return nil
	}

	pid := cmd.Process.Pid
	l.logger.Info("stopping model server", zap.Int("pid", pid))

	// Negative pid targets the process group.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		syscall.Kill(-pid, syscall.SIGKILL)
	}

	select {
	case <-done:
	case <-time.After(l.cfg.StopTimeout):
		l.logger.Warn("model server ignored SIGTERM, killing", zap.Int("pid", pid))
		syscall.Kill(-pid, syscall.SIGKILL)
		<-done
	}

	l.reap()
	l.logger.Info("model server stopped", zap.Int("pid", pid))
	return nil
}

func (l *Launcher) reap() {
	l.mu.Lock()
	l.cmd = nil
	l.done = nil
	l.mu.Unlock()
}
