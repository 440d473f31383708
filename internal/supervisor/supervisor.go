// Package supervisor manages the lifecycle of a locally-run inference server
// process: start, stop, health checks, and bounded automatic restart.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status represents the runtime process lifecycle state.
type Status string

const (
	StatusStopped   Status = "stopped"
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusUnhealthy Status = "unhealthy"
	StatusFailed    Status = "failed"
)

var (
	// ErrRuntimeUnavailable indicates no runtime binary exists and no system
	// installation was detected. Raised by Initialize.
	ErrRuntimeUnavailable = errors.New("runtime binary not found and no system installation detected")

	// ErrSpawnFailed indicates the OS failed to start the child process.
	ErrSpawnFailed = errors.New("failed to spawn runtime process")

	// ErrRestartBudgetExhausted indicates the restart attempt budget is spent.
	// The supervisor is Failed and must be reconstructed to recover.
	ErrRestartBudgetExhausted = errors.New("restart budget exhausted")
)

const (
	probeTimeout   = 5 * time.Second
	restartBackoff = 2 * time.Second
)

// Config holds supervisor settings, fixed at construction.
type Config struct {
	// Port for the runtime HTTP API (default 11435 for the managed instance,
	// distinct from the system default 11434).
	Port int
	// BinaryPath is the runtime executable to spawn.
	BinaryPath string
	// ModelsDir is passed to the child via environment.
	ModelsDir string
	// PreferSystem skips spawning when a system installation is detected.
	PreferSystem bool
	// MaxRestartAttempts bounds automatic recovery.
	MaxRestartAttempts int
	// HealthCheckInterval paces the supervise loop.
	HealthCheckInterval time.Duration
}

// DefaultConfig returns supervisor defaults.
func DefaultConfig() Config {
	return Config{
		Port:                11435,
		PreferSystem:        true,
		MaxRestartAttempts:  3,
		HealthCheckInterval: 30 * time.Second,
	}
}

// State is a point-in-time snapshot of the supervisor.
type State struct {
	Status          Status    `json:"status"`
	PID             int       `json:"pid,omitempty"`
	RestartCount    int       `json:"restart_count"`
	LastHealthCheck time.Time `json:"last_health_check,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
}

// Supervisor owns exactly one child runtime process. All state transitions
// are serialized under a single mutex so concurrent health checks, the
// supervise loop, and direct start/stop calls stay atomic.
type Supervisor struct {
	cfg   Config
	probe *http.Client

	mu    sync.Mutex
	state State
	proc  *os.Process
}

// New creates a supervisor in the Stopped state.
func New(cfg Config) *Supervisor {
	return &Supervisor{
		cfg:   cfg,
		probe: &http.Client{Timeout: probeTimeout},
		state: State{Status: StatusStopped},
	}
}

// Initialize verifies the runtime can be started: when a system installation
// is preferred and present the supervisor becomes a passthrough and nothing
// is verified; otherwise the configured binary must exist and the models
// directory is created. Does not change status.
func (s *Supervisor) Initialize() error {
	if s.cfg.PreferSystem {
		if path, ok := DetectSystemRuntime(); ok {
			log.Info("Found system runtime installation", "path", path)
			return nil
		}
	}

	if _, err := os.Stat(s.cfg.BinaryPath); err != nil {
		return fmt.Errorf("%w: %s", ErrRuntimeUnavailable, s.cfg.BinaryPath)
	}

	if err := os.MkdirAll(s.cfg.ModelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	return nil
}

// Start spawns the runtime process. A supervisor that is already Running
// returns nil without spawning a second process.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Supervisor) startLocked() error {
	if s.state.Status == StatusRunning {
		return nil
	}

	s.state.Status = StatusStarting

	cmd := exec.Command(s.cfg.BinaryPath, "serve")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("OLLAMA_HOST=127.0.0.1:%d", s.cfg.Port),
		"OLLAMA_MODELS="+s.cfg.ModelsDir,
	)

	if err := cmd.Start(); err != nil {
		s.state.Status = StatusFailed
		s.state.LastError = err.Error()
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	log.Info("Started runtime process", "pid", cmd.Process.Pid, "port", s.cfg.Port)

	s.proc = cmd.Process
	s.state.PID = cmd.Process.Pid
	s.state.Status = StatusRunning
	s.state.LastError = ""

	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return nil
}

// Stop terminates the runtime process. Signal delivery is best-effort: a
// failed kill is logged, and the state still transitions to Stopped with the
// restart counter reset. Stopping a never-started supervisor is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == StatusStopped {
		return nil
	}

	s.terminateLocked()
	s.state.RestartCount = 0

	return nil
}

// terminateLocked kills the child and marks the supervisor Stopped without
// touching the restart counter. Callers must hold s.mu.
func (s *Supervisor) terminateLocked() {
	if s.proc != nil {
		log.Info("Stopping runtime process", "pid", s.proc.Pid)
		if err := terminate(s.proc); err != nil {
			log.Error("Failed to signal runtime process", "pid", s.proc.Pid, "error", err)
		}
	}

	s.state.Status = StatusStopped
	s.state.PID = 0
	s.proc = nil
}

// HealthCheck probes the runtime's version endpoint. A reachable runtime
// transitions the supervisor to Running and resets the restart counter; an
// unreachable one transitions to Unhealthy. A failed probe is a normal
// outcome, not an error.
func (s *Supervisor) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint()+"/api/version", nil)
	if err != nil {
		s.recordProbe(false, err.Error())
		return false
	}

	resp, err := s.probe.Do(req)
	if err != nil {
		s.recordProbe(false, err.Error())
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 300
	detail := ""
	if !healthy {
		detail = fmt.Sprintf("version endpoint returned status %d", resp.StatusCode)
	}
	s.recordProbe(healthy, detail)

	return healthy
}

func (s *Supervisor) recordProbe(healthy bool, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastHealthCheck = time.Now()

	if healthy {
		if s.state.Status != StatusRunning {
			s.state.Status = StatusRunning
			s.state.RestartCount = 0
		}
		return
	}

	s.state.Status = StatusUnhealthy
	if detail != "" {
		s.state.LastError = detail
	}
}

// Restart stops and re-spawns the runtime after a short backoff. Once the
// attempt budget is spent the supervisor transitions to Failed and returns
// ErrRestartBudgetExhausted without touching the process.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.state.RestartCount >= s.cfg.MaxRestartAttempts {
		s.state.Status = StatusFailed
		s.state.LastError = ErrRestartBudgetExhausted.Error()
		s.mu.Unlock()
		return ErrRestartBudgetExhausted
	}

	s.state.RestartCount++
	attempt := s.state.RestartCount

	// Kill without resetting the counter so consecutive failures accumulate
	// toward the budget.
	s.terminateLocked()
	s.mu.Unlock()

	log.Info("Restarting runtime", "attempt", attempt, "max", s.cfg.MaxRestartAttempts)

	select {
	case <-time.After(restartBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.Start()
}

// Supervise runs the monitoring loop: sleep for the health-check interval,
// probe, and restart while the budget allows. The loop exits when the budget
// is exhausted or the context is canceled. Restart failures short of budget
// exhaustion are logged and the loop continues.
func (s *Supervisor) Supervise(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.HealthCheckInterval):
		}

		if s.HealthCheck(ctx) {
			continue
		}

		if s.Status().RestartCount >= s.cfg.MaxRestartAttempts {
			log.Error("Runtime failed after exhausting restart attempts")
			s.mu.Lock()
			s.state.Status = StatusFailed
			s.state.LastError = ErrRestartBudgetExhausted.Error()
			s.mu.Unlock()
			return ErrRestartBudgetExhausted
		}

		log.Warn("Runtime unhealthy, attempting restart")
		if err := s.Restart(ctx); err != nil {
			if errors.Is(err, ErrRestartBudgetExhausted) || errors.Is(err, context.Canceled) {
				return err
			}
			log.Error("Failed to restart runtime", "error", err)
		}
	}
}

// Status returns a consistent point-in-time copy of the supervisor state.
func (s *Supervisor) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Endpoint returns the base URL of the managed runtime instance.
func (s *Supervisor) Endpoint() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.cfg.Port)
}
