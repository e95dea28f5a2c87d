package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/broker"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T) *SQLite {
	t.Helper()

	l, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func rec(symbol string, side broker.Side, qty, price string) TradeRecord {
	return NewTradeRecord("ord-1", symbol, side, d(qty), d(price), "strat-1")
}

func TestAppendAndQueryRoundTrip(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	r := rec("AAPL", broker.Buy, "10", "100.25")
	require.NoError(t, l.Append(r))

	got, err := l.BySymbol("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r.ID, got[0].ID)
	assert.True(t, got[0].Qty.Equal(d("10")))
	assert.True(t, got[0].Price.Equal(d("100.25")))
	assert.True(t, got[0].Total.Equal(d("1002.5")), "total %s", got[0].Total)
}

func TestSinceAndTodayFilters(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)

	old := rec("AAPL", broker.Buy, "1", "100")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, l.Append(old))
	require.NoError(t, l.Append(rec("AAPL", broker.Buy, "2", "101")))

	since, err := l.Since(time.Now().Add(-1 * time.Hour))
	require.NoError(t, err)
	assert.Len(t, since, 1)

	today, err := l.Today()
	require.NoError(t, err)
	assert.Len(t, today, 1)

	n, err := l.TradeCountToday()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMatchFIFOSplitsLots(t *testing.T) {
	t.Parallel()

	// Buys 10@$100 then 5@$110, sell 12@$120: 10 match at $100
	// (pnl $200), 2 at $110 (pnl $20), 3 remain open at $110.
	trades := []TradeRecord{
		rec("AAPL", broker.Buy, "10", "100"),
		rec("AAPL", broker.Buy, "5", "110"),
		rec("AAPL", broker.Sell, "12", "120"),
	}

	matches, open := MatchFIFO(trades)
	require.Len(t, matches, 2)

	assert.True(t, matches[0].Qty.Equal(d("10")))
	assert.True(t, matches[0].PnL.Equal(d("200")), "pnl %s", matches[0].PnL)
	assert.True(t, matches[1].Qty.Equal(d("2")))
	assert.True(t, matches[1].PnL.Equal(d("20")), "pnl %s", matches[1].PnL)

	require.Len(t, open, 1)
	assert.True(t, open[0].Qty.Equal(d("3")))
	assert.True(t, open[0].Price.Equal(d("110")))
}

func TestRealizedPnLToday(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	require.NoError(t, l.Append(rec("AAPL", broker.Buy, "10", "100")))
	require.NoError(t, l.Append(rec("AAPL", broker.Sell, "10", "95")))
	require.NoError(t, l.Append(rec("MSFT", broker.Buy, "5", "300")))
	require.NoError(t, l.Append(rec("MSFT", broker.Sell, "5", "310")))

	pnl, err := l.RealizedPnLToday()
	require.NoError(t, err)
	assert.True(t, pnl.Equal(d("0")), "(-50)+(+50), got %s", pnl)
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	require.NoError(t, l.Append(rec("AAPL", broker.Buy, "10", "100")))
	require.NoError(t, l.Append(rec("MSFT", broker.Sell, "5", "300")))

	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, l.ExportCSV(path, ""))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "AAPL", rows[1][2])
	assert.Equal(t, "MSFT", rows[2][2])
}
