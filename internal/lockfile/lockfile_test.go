package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTryAcquire_Exclusive verifies the second acquire fails fast with
// ErrLocked and succeeds again after release.
//
// flock locks are per open file description, so two acquires in one process
// still conflict, which is what makes this testable without forking.
func TestTryAcquire_Exclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "relay-select.lock")

	first, err := TryAcquire(path)
	require.NoError(t, err)

	_, err = TryAcquire(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release())

	second, err := TryAcquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

// TestTryAcquire_BadPath verifies a distinct error for unusable lock paths.
func TestTryAcquire_BadPath(t *testing.T) {
	t.Parallel()

	_, err := TryAcquire(filepath.Join(t.TempDir(), "missing", "dir", "x.lock"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLocked)
}
