package process

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/glance/internal/logging"
)

// Supervisor tracks the child processes started for actions so they can
// be terminated together. Supervisor is safe for concurrent use.
type Supervisor struct {
	mu        sync.RWMutex
	processes map[string]*Process
	closed    atomic.Bool

	// limit caps concurrently running processes; 0 means unlimited.
	limit  int
	logger *logging.Logger
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithMaxProcesses caps the number of concurrently running processes.
// Starting one more fails with ErrTooManyProcesses.
func WithMaxProcesses(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// NewSupervisor creates a supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		processes: make(map[string]*Process),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("process")
	return s
}

// Start starts cmd and tracks it until it exits. The caller configures
// the command's standard I/O before calling Start.
func (s *Supervisor) Start(name string, cmd *exec.Cmd) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}
	if s.limit > 0 && len(s.processes) >= s.limit {
		return nil, fmt.Errorf("%w: %d running", ErrTooManyProcesses, len(s.processes))
	}

	proc := NewProcess(uuid.NewString(), name, cmd)
	if err := proc.start(); err != nil {
		return nil, err
	}
	s.processes[proc.ID] = proc
	s.logger.Debug("started %s pid=%d id=%s", name, proc.PID(), proc.ID)

	go s.untrack(proc)
	return proc, nil
}

// untrack forgets proc once it exits.
func (s *Supervisor) untrack(proc *Process) {
	<-proc.Done()

	s.mu.Lock()
	delete(s.processes, proc.ID)
	s.mu.Unlock()

	s.logger.Debug("%s exited code=%d state=%s after %s", proc.Name, proc.ExitCode(), proc.State(), proc.Runtime())
}

// Running returns the tracked processes.
func (s *Supervisor) Running() []*Process {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		out = append(out, p)
	}
	return out
}

// Count returns the number of tracked processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// Shutdown refuses new processes, sends SIGTERM to all running ones, and
// kills whatever is left after grace. It returns once every process has
// exited or a further grace period has passed after the kill.
func (s *Supervisor) Shutdown(grace time.Duration) {
	if s.closed.Swap(true) {
		return
	}

	procs := s.Running()
	if len(procs) == 0 {
		return
	}
	s.logger.Debug("shutting down %d processes", len(procs))

	for _, p := range procs {
		if p.IsRunning() {
			_ = p.Terminate()
		}
	}

	done := make(chan struct{})
	go func() {
		for _, p := range procs {
			<-p.Done()
		}
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(grace):
	}

	for _, p := range procs {
		if p.IsRunning() {
			_ = p.Kill()
		}
	}

	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("processes still running after kill")
	}
}
