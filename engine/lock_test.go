package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/errs"
)

func TestLockSecondAcquireFailsNamingHolder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "engine.lock")

	first := NewLock(path)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := NewLock(path)
	err := second.Acquire()
	require.Error(t, err)

	var ee *errs.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, os.Getpid(), ee.PID)
	assert.Contains(t, ee.Error(), strconv.Itoa(os.Getpid()))

	// The failed acquire must not clobber the holder's pid.
	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestLockReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "engine.lock")

	l := NewLock(path)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())

	again := NewLock(path)
	require.NoError(t, again.Acquire())
	assert.NoError(t, again.Release())
}

func TestStaleLockFileIsCleared(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "engine.lock")

	// A dead process left its pid behind without holding the flock.
	require.NoError(t, os.WriteFile(path, []byte("999999"), 0o644))

	pid, alive := Holder(path)
	assert.Equal(t, 999999, pid)
	assert.False(t, alive, "pid 999999 should not exist")

	l := NewLock(path)
	require.NoError(t, l.Acquire(), "stale file must not block acquisition")
	defer l.Release()

	pid, alive = Holder(path)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, alive)
}

func TestHolderOnMissingOrGarbageFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	pid, alive := Holder(filepath.Join(dir, "nope.lock"))
	assert.Zero(t, pid)
	assert.False(t, alive)

	garbage := filepath.Join(dir, "bad.lock")
	require.NoError(t, os.WriteFile(garbage, []byte("not-a-pid"), 0o644))
	pid, alive = Holder(garbage)
	assert.Zero(t, pid)
	assert.False(t, alive)
}
