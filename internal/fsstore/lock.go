package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const lockRetryWait = 25 * time.Millisecond

// LockPathFor is the lock file guarding path.
func LockPathFor(path string) (string, error) {
	target, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".lck"), nil
}

// WithLock runs fn while holding an exclusive advisory lock on lockPath,
// waiting until ctx is done for another holder to let go.
func WithLock(ctx context.Context, lockPath string, fn func() error) error {
	target, err := cleanPath(lockPath)
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureDir(filepath.Dir(target), defaultDirPerm); err != nil {
		return err
	}
	return withLockFile(ctx, target, fn)
}

func writeLockOwner(file *os.File) {
	if file == nil {
		return
	}
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	_, _ = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
}

func waitForLockRetry(ctx context.Context, lockPath string) error {
	timer := time.NewTimer(lockRetryWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, lockPath, ctx.Err())
	case <-timer.C:
		return nil
	}
}
