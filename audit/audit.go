// Package audit keeps an immutable, timestamped trail of every
// safety-relevant action: order placements, strategy create/remove,
// engine stops, admission denials. It is independent of the error
// taxonomy; a denied order still leaves a row.
package audit

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/stratengine/internal/id"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	detail TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit(created_at);
`

type Entry struct {
	ID        string
	Action    string
	Detail    string
	CreatedAt time.Time
}

type Trail struct {
	db *sql.DB
}

func Open(path string) (*Trail, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Trail{db: db}, nil
}

func (t *Trail) Close() error { return t.db.Close() }

// Record appends one entry. There is no update or delete path.
func (t *Trail) Record(action, detail string) error {
	_, err := t.db.Exec(`
		INSERT INTO audit (id, action, detail, created_at)
		VALUES (?, ?, ?, ?)`,
		id.New(), action, detail, time.Now().UTC(),
	)
	return err
}

// List returns entries oldest first.
func (t *Trail) List() ([]Entry, error) {
	rows, err := t.db.Query(`
		SELECT id, action, detail, created_at
		FROM audit ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
