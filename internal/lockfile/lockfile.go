package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the lock. Callers skip
// the run entirely rather than waiting.
var ErrLocked = errors.New("another instance holds the lock")

// Lock is a held advisory exclusive lock.
type Lock struct {
	file *os.File
}

// TryAcquire takes an advisory exclusive lock on the file at path without
// blocking. A held lock yields ErrLocked immediately.
func TryAcquire(path string) (*Lock, error) {
	path = filepath.Clean(path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}

		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return &Lock{file: file}, nil
}

// Release drops the lock. The lock file itself is left in place; removing
// it would race with a concurrent acquire.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		_ = l.file.Close()

		return fmt.Errorf("unlock: %w", err)
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}

	return nil
}
