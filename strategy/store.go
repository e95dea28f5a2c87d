package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rustyeddy/stratengine/errs"
)

// Store persists the ordered strategy list as one JSON document,
// rewritten in full on every mutation. The mutex serializes writers
// within this process only; a second process racing the engine can
// still lose updates, which is why the live engine holds the
// singleton lock.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns every strategy in document order.
func (st *Store) List() ([]*Strategy, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loadLocked()
}

// Active returns enabled strategies in a non-terminal, non-paused
// phase, the set the live engine evaluates each cycle.
func (st *Store) Active() ([]*Strategy, error) {
	all, err := st.List()
	if err != nil {
		return nil, err
	}
	var out []*Strategy
	for _, s := range all {
		if s.Enabled && !s.Phase.IsTerminal() && s.Phase != Paused {
			out = append(out, s)
		}
	}
	return out, nil
}

func (st *Store) Get(strategyID string) (*Strategy, error) {
	all, err := st.List()
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.ID == strategyID {
			return s, nil
		}
	}
	return nil, errs.NotFound("strategy", strategyID)
}

// Add validates and appends a strategy.
func (st *Store) Add(s *Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.loadLocked()
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.ID == s.ID {
			return errs.Validation("strategy %s already exists", s.ID)
		}
	}
	return st.saveLocked(append(all, s))
}

// Update replaces the stored record with the same id.
func (st *Store) Update(s *Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.loadLocked()
	if err != nil {
		return err
	}
	for i, existing := range all {
		if existing.ID == s.ID {
			all[i] = s
			return st.saveLocked(all)
		}
	}
	return errs.NotFound("strategy", s.ID)
}

func (st *Store) Remove(strategyID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	all, err := st.loadLocked()
	if err != nil {
		return err
	}
	for i, existing := range all {
		if existing.ID == strategyID {
			return st.saveLocked(append(all[:i], all[i+1:]...))
		}
	}
	return errs.NotFound("strategy", strategyID)
}

func (st *Store) loadLocked() ([]*Strategy, error) {
	data, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read strategy store: %w", err)
	}

	var all []*Strategy
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode strategy store: %w", err)
	}
	return all, nil
}

func (st *Store) saveLocked(all []*Strategy) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode strategy store: %w", err)
	}

	tmp := st.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write strategy store: %w", err)
	}
	return os.Rename(tmp, st.path)
}
