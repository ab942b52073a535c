package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"folio-chat/contract"
	"folio-chat/errors"
)

const (
	waitTimeBeforeRestart = 200 * time.Millisecond
	maxWaitBeforeRestart  = 5 * time.Second
	// healthyRun resets the restart delay: a worker that ran that long wasn't crash looping.
	healthyRun = 30 * time.Second
)

// Supervisor runs the long-lived loops of a process (change feed listener,
// gRPC and HTTP servers) and restarts the ones that fail or panic.
// A worker returning nil is done and never restarted.
type Supervisor struct {
	Cancel  context.CancelFunc
	wg      *sync.WaitGroup
	log     *slog.Logger
	workers []contract.Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log}
}

// Run starts every added worker and blocks until all of them are finished.
// Cancelling ctx, or calling Stop, stops them.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs worker in its own goroutine, restarting it after errors and panics
// with a delay doubling up to maxWaitBeforeRestart.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		wait := waitTimeBeforeRestart

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", name))
				return
			}

			started := time.Now()
			err := runProtected(ctx, worker)
			if err == nil {
				s.log.Info(fmt.Sprintf("Worker finished : %s", name))
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			if time.Since(started) >= healthyRun {
				wait = waitTimeBeforeRestart
			}
			s.log.Warn("Worker crashed, restarting", "name", name, "error", err, "in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait = min(2*wait, maxWaitBeforeRestart)
		}
	}()
}

func runProtected(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels every worker. Run returns once they are all done.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
