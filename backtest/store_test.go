package backtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/internal/id"
	"github.com/rustyeddy/stratengine/strategy"
)

func storedResult(created time.Time) *Result {
	return &Result{
		ID:             id.New(),
		StrategyID:     id.New(),
		Symbol:         "AAPL",
		Type:           string(strategy.TrailingStop),
		CreatedAt:      created,
		InitialCapital: d("100000"),
		FinalEquity:    d("100064"),
		TotalReturnPct: d("0.064"),
		FinalPhase:     strategy.Completed,
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	st := NewStore(filepath.Join(t.TempDir(), "backtests"))
	res := storedResult(time.Now().UTC())
	require.NoError(t, st.Save(res))

	got, err := st.Load(res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
	assert.True(t, got.FinalEquity.Equal(d("100064")))
	assert.Equal(t, strategy.Completed, got.FinalPhase)
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	st := NewStore(filepath.Join(t.TempDir(), "backtests"))
	base := time.Now().UTC()

	oldest := storedResult(base.Add(-2 * time.Hour))
	middle := storedResult(base.Add(-1 * time.Hour))
	newest := storedResult(base)
	for _, r := range []*Result{middle, oldest, newest} {
		require.NoError(t, st.Save(r))
	}

	got, err := st.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, newest.ID, got[0].ID)
	assert.Equal(t, middle.ID, got[1].ID)
	assert.Equal(t, oldest.ID, got[2].ID)
}

func TestStoreListEmptyDir(t *testing.T) {
	t.Parallel()

	st := NewStore(filepath.Join(t.TempDir(), "never-created"))
	got, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreDeleteAndMissing(t *testing.T) {
	t.Parallel()

	st := NewStore(filepath.Join(t.TempDir(), "backtests"))
	res := storedResult(time.Now().UTC())
	require.NoError(t, st.Save(res))
	require.NoError(t, st.Delete(res.ID))

	var nf *errs.NotFoundError
	_, err := st.Load(res.ID)
	assert.ErrorAs(t, err, &nf)

	err = st.Delete(res.ID)
	assert.ErrorAs(t, err, &nf)
}
