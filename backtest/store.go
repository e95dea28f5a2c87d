package backtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/stratengine/errs"
)

// Store keeps finished results on disk, one JSON document per run.
type Store struct {
	mu  sync.Mutex
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the result document. The write goes through a temp file
// and rename so a crash never leaves a half-written run behind.
func (st *Store) Save(res *Result) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	tmp := st.path(res.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, st.path(res.ID))
}

// List returns every stored run, newest first.
func (st *Store) List() ([]*Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		res, err := st.load(filepath.Join(st.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (st *Store) Load(id string) (*Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	res, err := st.load(st.path(id))
	if os.IsNotExist(err) {
		return nil, errs.NotFound("backtest result", id)
	}
	return res, err
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.Remove(st.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errs.NotFound("backtest result", id)
		}
		return err
	}
	return nil
}

func (st *Store) path(id string) string {
	return filepath.Join(st.dir, id+".json")
}

func (st *Store) load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
