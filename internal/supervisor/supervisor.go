// Package supervisor keeps a fixed number of worker processes alive.
package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"basegraph.app/airbrake-proxy/common/logger"
)

// SlotState is the lifecycle position of one worker slot.
type SlotState string

const (
	SlotStarting SlotState = "starting"
	SlotRunning  SlotState = "running"
	SlotExited   SlotState = "exited"
)

// Process is a running worker.
type Process interface {
	Pid() int
	// Wait blocks until the process exits.
	Wait() error
	Signal(sig os.Signal) error
}

// Spawner starts the worker for a slot.
type Spawner interface {
	Spawn(ctx context.Context, slot int) (Process, error)
}

type Config struct {
	Workers int
	// SpawnRetryDelay is the pause after a failed spawn before the slot tries again.
	SpawnRetryDelay time.Duration
}

type Supervisor struct {
	spawner Spawner
	cfg     Config

	mu       sync.Mutex
	states   []SlotState
	restarts int
}

func New(spawner Spawner, cfg Config) *Supervisor {
	if cfg.SpawnRetryDelay <= 0 {
		cfg.SpawnRetryDelay = time.Second
	}
	states := make([]SlotState, cfg.Workers)
	for i := range states {
		states[i] = SlotStarting
	}
	return &Supervisor{
		spawner: spawner,
		cfg:     cfg,
		states:  states,
	}
}

// Run keeps cfg.Workers workers alive until ctx is cancelled, then sends each
// running worker SIGTERM and waits for it to exit.
func (s *Supervisor) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "supervisor started", "workers", s.cfg.Workers)

	var wg sync.WaitGroup
	for slot := 0; slot < s.cfg.Workers; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			s.runSlot(logger.WithLogFields(ctx, logger.LogFields{
				WorkerSlot: logger.Ptr(slot),
				Component:  "airbrake-proxy.supervisor",
			}), slot)
		}(slot)
	}
	wg.Wait()

	slog.InfoContext(ctx, "supervisor stopped", "restarts", s.Restarts())
	return nil
}

func (s *Supervisor) runSlot(ctx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(slot, SlotStarting)
		proc, err := s.spawner.Spawn(ctx, slot)
		if err != nil {
			slog.ErrorContext(ctx, "failed to spawn worker", "error", err)
			select {
			case <-ctx.Done():
				s.setState(slot, SlotExited)
				return
			case <-time.After(s.cfg.SpawnRetryDelay):
			}
			continue
		}

		s.setState(slot, SlotRunning)
		slog.InfoContext(ctx, "worker started", "pid", proc.Pid())

		done := make(chan error, 1)
		go func() { done <- proc.Wait() }()

		select {
		case err := <-done:
			s.setState(slot, SlotExited)
			s.mu.Lock()
			s.restarts++
			s.mu.Unlock()
			slog.WarnContext(ctx, "worker exited, spawning replacement", "pid", proc.Pid(), "error", err)

		case <-ctx.Done():
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				slog.WarnContext(ctx, "failed to signal worker", "pid", proc.Pid(), "error", err)
			}
			err := <-done
			s.setState(slot, SlotExited)
			slog.InfoContext(ctx, "worker stopped", "pid", proc.Pid(), "error", err)
			return
		}
	}
}

func (s *Supervisor) setState(slot int, state SlotState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[slot] = state
}

// States returns a snapshot of every slot's state.
func (s *Supervisor) States() []SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SlotState(nil), s.states...)
}

// Restarts returns how many worker exits have been answered with a replacement.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}
