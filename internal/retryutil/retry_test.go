package retryutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestAsyncRetryRunsOnce(t *testing.T) {
	var calls atomic.Int32
	done := AsyncRetry(context.Background(), quiet, "send", time.Millisecond, time.Second, func(ctx context.Context) error {
		calls.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("retry context has no deadline")
		}
		return errors.New("still failing")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("retry did not finish")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestAsyncRetryDroppedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := AsyncRetry(ctx, quiet, "send", time.Hour, time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("retry was not dropped")
	}
	if calls.Load() != 0 {
		t.Fatalf("calls = %d, want 0", calls.Load())
	}
}

func TestAsyncRetryNilFunc(t *testing.T) {
	select {
	case <-AsyncRetry(context.Background(), nil, "noop", 0, 0, nil):
	default:
		t.Fatalf("nil fn should finish immediately")
	}
}
