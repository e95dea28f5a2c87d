package ledger

import (
	"encoding/csv"
	"os"
	"time"
)

// ExportCSV writes every row for the symbol filter ("" for all) to a
// flat delimited file, header first.
func (l *SQLite) ExportCSV(path, symbol string) error {
	var rows []TradeRecord
	var err error
	if symbol == "" {
		rows, err = l.query("")
	} else {
		rows, err = l.BySymbol(symbol)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "order_id", "symbol", "side", "qty", "price", "total",
		"status", "strategy_id", "created_at",
	}); err != nil {
		return err
	}

	for _, r := range rows {
		if err := w.Write([]string{
			r.ID, r.OrderID, r.Symbol, string(r.Side),
			r.Qty.String(), r.Price.String(), r.Total.String(),
			r.Status, r.StrategyID, r.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
