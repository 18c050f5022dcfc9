package coordinator

import (
	"context"
	"log/slog"
	"time"
)

// Scope logs a START marker for phase and returns a func that logs a FINISH
// marker with elapsed duration. Call the returned func via defer so FINISH
// is guaranteed on every exit path (including panics unwound by an outer
// recover), grounded on the teacher's internal/merkle/diff.go
// time.Since(start)-around-Compare duration-logging style.
func Scope(logger *slog.Logger, phase string) func() {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Info("START", "phase", phase)
	return func() {
		logger.Info("FINISH", "phase", phase, "duration", time.Since(start).Round(time.Millisecond))
	}
}

// RunLoop runs one Coordinator.Run pass immediately, then again every
// interval, until ctx is canceled. This generalizes core.py's main(), which
// expected to be invoked once per external cron tick, into an in-process
// scheduler for long-running deployments (SPEC_FULL.md §4.6).
func RunLoop(ctx context.Context, c *Coordinator, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	runOnce := func() {
		result := c.Run(ctx)
		if result.PartialFailure {
			logger.Error("coordinator pass completed with partial failure", "error_count", len(result.Errors))
		} else {
			logger.Info("coordinator pass completed successfully")
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("coordinator loop stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
