package orders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rustyeddy/stratengine/errs"
)

// Store persists order records as one JSON document, rewritten in full
// per mutation. Same caveat as the strategy store: the mutex covers
// this process only.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (st *Store) List() ([]*Order, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loadLocked()
}

// Open returns records still awaiting a terminal status.
func (st *Store) Open() ([]*Order, error) {
	all, err := st.List()
	if err != nil {
		return nil, err
	}
	var out []*Order
	for _, o := range all {
		if !o.Status.IsTerminal() {
			out = append(out, o)
		}
	}
	return out, nil
}

// PendingForSymbol returns NEW/SUBMITTED records for the symbol, the
// set admission control reserves against.
func (st *Store) PendingForSymbol(symbol string) ([]*Order, error) {
	open, err := st.Open()
	if err != nil {
		return nil, err
	}
	var out []*Order
	for _, o := range open {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out, nil
}

func (st *Store) Get(orderID string) (*Order, error) {
	all, err := st.List()
	if err != nil {
		return nil, err
	}
	for _, o := range all {
		if o.ID == orderID || (orderID != "" && o.ExternalID == orderID) {
			return o, nil
		}
	}
	return nil, errs.NotFound("order", orderID)
}

// Upsert merges the record into the collection. Two records are the
// same order when the local ids match, the external ids match, or
// either record's local id matches the other's external id: a local
// order only learns its external id after broker confirmation, so a
// plain primary-key match is not enough.
func (st *Store) Upsert(o *Order) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.loadLocked()
	if err != nil {
		return err
	}

	o.UpdatedAt = time.Now().UTC()
	for i, existing := range all {
		if sameOrder(existing, o) {
			merged := *o
			if merged.ExternalID == "" {
				merged.ExternalID = existing.ExternalID
			}
			if merged.CreatedAt.IsZero() {
				merged.CreatedAt = existing.CreatedAt
			}
			all[i] = &merged
			return st.saveLocked(all)
		}
	}
	return st.saveLocked(append(all, o))
}

func sameOrder(a, b *Order) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	if a.ExternalID != "" && a.ExternalID == b.ExternalID {
		return true
	}
	if a.ID != "" && a.ID == b.ExternalID {
		return true
	}
	if b.ID != "" && b.ID == a.ExternalID {
		return true
	}
	return false
}

func (st *Store) loadLocked() ([]*Order, error) {
	data, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read order store: %w", err)
	}

	var all []*Order
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode order store: %w", err)
	}
	return all, nil
}

func (st *Store) saveLocked(all []*Order) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode order store: %w", err)
	}

	tmp := st.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write order store: %w", err)
	}
	return os.Rename(tmp, st.path)
}
