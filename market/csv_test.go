package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBars(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	t.Parallel()

	path := writeBars(t, `time,open,high,low,close,volume
2024-01-02T14:30:00Z,187.15,188.44,183.885,185.64,82488700
1704292200,186.09,186.40,183.92,184.25,58414500
`)

	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), bars[0].Time)
	assert.True(t, bars[0].Open.Equal(decimal.RequireFromString("187.15")))
	assert.True(t, bars[0].Low.Equal(decimal.RequireFromString("183.885")))
	assert.Equal(t, int64(82488700), bars[0].Volume)

	// Unix-seconds timestamps parse too.
	assert.Equal(t, time.Unix(1704292200, 0).UTC(), bars[1].Time)
}

func TestLoadBarsCSVNoHeader(t *testing.T) {
	t.Parallel()

	path := writeBars(t, "2024-01-02T14:30:00Z,100,101,99,100.5,1000\n")
	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, bars[0].Close.Equal(decimal.RequireFromString("100.5")))
}

func TestLoadBarsCSVErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadBarsCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = LoadBarsCSV(writeBars(t, "time,open,high,low,close,volume\nnot-a-time,1,2,0,1,10\n"))
	assert.ErrorContains(t, err, "bad time")

	_, err = LoadBarsCSV(writeBars(t, "time,open,high,low,close,volume\n2024-01-02T14:30:00Z,x,2,0,1,10\n"))
	assert.Error(t, err)
}
