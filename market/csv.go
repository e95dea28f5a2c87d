package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LoadBarsCSV reads a bar series from a CSV file with the header
// time,open,high,low,close,volume. Times are RFC3339 or unix seconds.
func LoadBarsCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read bars: %s is empty", path)
	}

	start := 0
	if rows[0][0] == "time" {
		start = 1
	}

	bars := make([]Bar, 0, len(rows)-start)
	for i, row := range rows[start:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("read bars: row %d has %d fields, want 6", i+start+1, len(row))
		}
		t, err := parseBarTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("read bars: row %d: %w", i+start+1, err)
		}
		b := Bar{Time: t}
		for j, dst := range []*decimal.Decimal{&b.Open, &b.High, &b.Low, &b.Close} {
			d, err := decimal.NewFromString(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("read bars: row %d field %d: %w", i+start+1, j+2, err)
			}
			*dst = d
		}
		v, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read bars: row %d volume: %w", i+start+1, err)
		}
		b.Volume = v
		bars = append(bars, b)
	}
	return bars, nil
}

func parseBarTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", s)
	}
	return time.Unix(secs, 0).UTC(), nil
}
