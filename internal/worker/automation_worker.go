package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DueJobProcessor runs all due jobs and reports how many it handled.
type DueJobProcessor interface {
	ProcessDueJobs(ctx context.Context) (int, error)
}

// AutomationWorker polls for due automation jobs on a fixed cadence.
// Polling a persisted queue instead of arming in-process timers means
// jobs survive restarts; anything due while the process was down runs on
// the first tick after startup.
type AutomationWorker struct {
	automation DueJobProcessor
	interval   time.Duration
	logger     *zap.Logger
	done       chan struct{}
}

// NewAutomationWorker constructs the worker.
func NewAutomationWorker(automation DueJobProcessor, interval time.Duration, logger *zap.Logger) *AutomationWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationWorker{
		automation: automation,
		interval:   interval,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start launches the poll loop. It runs one pass immediately, then on
// every tick until ctx is cancelled.
func (w *AutomationWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.poll(ctx)
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("automation worker stopping")
				return
			case <-ticker.C:
				w.poll(ctx)
			}
		}
	}()
}

// Wait blocks until the poll loop has exited.
func (w *AutomationWorker) Wait() {
	<-w.done
}

func (w *AutomationWorker) poll(ctx context.Context) {
	processed, err := w.automation.ProcessDueJobs(ctx)
	if err != nil {
		w.logger.Error("automation poll failed", zap.Error(err))
		return
	}
	if processed > 0 {
		w.logger.Info("automation poll complete", zap.Int("jobs_processed", processed))
	}
}
