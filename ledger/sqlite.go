package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
)

// SQLite stores the ledger. Decimals are persisted as TEXT so values
// round-trip exactly; REAL columns would reintroduce binary floating
// point into P&L.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (l *SQLite) Close() error { return l.db.Close() }

// Append inserts one row. There is no update path on this table.
func (l *SQLite) Append(t TradeRecord) error {
	_, err := l.db.Exec(`
		INSERT INTO trades
		(id, order_id, symbol, side, qty, price, total, status, strategy_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrderID, t.Symbol, string(t.Side),
		t.Qty.String(), t.Price.String(), t.Total.String(),
		t.Status, t.StrategyID, t.CreatedAt,
	)
	return err
}

func (l *SQLite) query(where string, args ...any) ([]TradeRecord, error) {
	rows, err := l.db.Query(`
		SELECT id, order_id, symbol, side, qty, price, total, status, strategy_id, created_at
		FROM trades `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var side, qty, price, tot string
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Symbol, &side,
			&qty, &price, &tot, &rec.Status, &rec.StrategyID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Side = broker.Side(side)
		if rec.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("ledger row %s qty: %w", rec.ID, err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("ledger row %s price: %w", rec.ID, err)
		}
		if rec.Total, err = decimal.NewFromString(tot); err != nil {
			return nil, fmt.Errorf("ledger row %s total: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BySymbol returns every row for the symbol, oldest first.
func (l *SQLite) BySymbol(symbol string) ([]TradeRecord, error) {
	return l.query(`WHERE symbol = ?`, symbol)
}

// Since returns rows created at or after t.
func (l *SQLite) Since(t time.Time) ([]TradeRecord, error) {
	return l.query(`WHERE created_at >= ?`, t)
}

// Today returns rows since local midnight.
func (l *SQLite) Today() ([]TradeRecord, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return l.Since(midnight)
}

// TradeCountToday backs the max-daily-trades safety check.
func (l *SQLite) TradeCountToday() (int, error) {
	rows, err := l.Today()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// RealizedPnLToday FIFO-matches today's rows and sums the realized
// side, backing the max-daily-loss safety check.
func (l *SQLite) RealizedPnLToday() (decimal.Decimal, error) {
	rows, err := l.Today()
	if err != nil {
		return decimal.Zero, err
	}

	pnl := decimal.Zero
	bySymbol := make(map[string][]TradeRecord)
	var symbols []string
	for _, r := range rows {
		if _, seen := bySymbol[r.Symbol]; !seen {
			symbols = append(symbols, r.Symbol)
		}
		bySymbol[r.Symbol] = append(bySymbol[r.Symbol], r)
	}
	for _, sym := range symbols {
		matches, _ := MatchFIFO(bySymbol[sym])
		for _, m := range matches {
			pnl = pnl.Add(m.PnL)
		}
	}
	return pnl, nil
}
