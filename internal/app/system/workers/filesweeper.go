// internal/app/system/workers/filesweeper.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// SweepFunc performs one garbage-collection pass.
type SweepFunc func(ctx context.Context) error

// FileSweeper is a background worker that removes files flagged for
// deletion on a fixed interval.
type FileSweeper struct {
	sweep    SweepFunc
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFileSweeper creates a new sweeper worker.
//
// Parameters:
//   - sweep: one collection pass (gc.Collector.Sweep adapted to SweepFunc)
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 2 minutes)
func NewFileSweeper(sweep SweepFunc, logger *zap.Logger, interval time.Duration) *FileSweeper {
	return &FileSweeper{
		sweep:    sweep,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *FileSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("file sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for an in-flight sweep to
// finish. Safe to call more than once.
func (w *FileSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("file sweeper stopped")
	})
}

func (w *FileSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.once()
		}
	}
}

func (w *FileSweeper) once() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	if err := w.sweep(ctx); err != nil {
		w.log.Error("file sweep failed", zap.Error(err))
	}
}
