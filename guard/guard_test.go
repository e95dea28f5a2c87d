package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/errs"
)

func TestLimiterSlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	l.SetClock(func() time.Time { return now })

	require.NoError(t, l.Allow("backtest"))
	require.NoError(t, l.Allow("backtest"))

	err := l.Allow("backtest")
	var rl *errs.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "backtest", rl.Key)

	// Other keys are independent.
	assert.NoError(t, l.Allow("optimize"))

	// The window slides: a minute later the first calls have aged out.
	now = now.Add(61 * time.Second)
	assert.NoError(t, l.Allow("backtest"))
}

func TestLimiterDeniedCallsNotRecorded(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(1, time.Minute)
	l.SetClock(func() time.Time { return now })

	require.NoError(t, l.Allow("k"))
	for i := 0; i < 5; i++ {
		assert.Error(t, l.Allow("k"))
	}

	// Only the allowed call occupies the window.
	now = now.Add(61 * time.Second)
	assert.NoError(t, l.Allow("k"))
}

func TestLimiterReset(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, time.Hour)
	require.NoError(t, l.Allow("k"))
	require.Error(t, l.Allow("k"))

	l.Reset()
	assert.NoError(t, l.Allow("k"))
}

func TestRunWithTimeoutCompletes(t *testing.T) {
	t.Parallel()

	err := RunWithTimeout(context.Background(), "job", time.Second, func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)

	want := errors.New("boom")
	err = RunWithTimeout(context.Background(), "job", time.Second, func(context.Context) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestRunWithTimeoutAbandons(t *testing.T) {
	t.Parallel()

	started := time.Now()
	err := RunWithTimeout(context.Background(), "slow", 20*time.Millisecond, func(context.Context) error {
		time.Sleep(5 * time.Second)
		return nil
	})

	var te *errs.TaskTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "slow", te.Key)
	assert.Less(t, time.Since(started), time.Second, "caller must not wait for the abandoned work")
}
