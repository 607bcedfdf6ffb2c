// Package retryutil schedules one delayed retry of a failed operation.
package retryutil

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultRetryDelay   = 2 * time.Second
	defaultRetryTimeout = 12 * time.Second
)

// AsyncRetry runs fn once in the background after delay, bounded by
// timeout. Canceling ctx drops the retry. The returned channel is closed
// when the attempt has finished or was dropped.
func AsyncRetry(ctx context.Context, logger *slog.Logger, name string, delay, timeout time.Duration, fn func(ctx context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	if fn == nil {
		close(done)
		return done
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	if timeout <= 0 {
		timeout = defaultRetryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(name+"_retry_scheduled", "delay", delay.String(), "timeout", timeout.String())
	go func() {
		defer close(done)
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			logger.Debug(name+"_retry_dropped", "reason", "context_canceled")
			return
		case <-timer.C:
		}
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(runCtx); err != nil {
			logger.Warn(name+"_retry_failed", "error", err.Error())
			return
		}
		logger.Info(name + "_retry_ok")
	}()
	return done
}
