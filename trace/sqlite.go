//go:build !tinygo

package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	tick     INTEGER NOT NULL,
	kind     TEXT    NOT NULL,
	task_id  INTEGER NOT NULL,
	task     TEXT,
	state    TEXT,
	priority INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_task ON events (task_id, tick);
`

const insertEvent = `INSERT INTO events (tick, kind, task_id, task, state, priority) VALUES (?, ?, ?, ?, ?, ?)`

const sqliteBatch = 256

// SQLite stores events in an SQLite database, one row per event.
type SQLite struct {
	pipe
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trace schema in %q: %w", path, err)
	}

	s := &SQLite{db: db}
	s.start(s.write)
	return s, nil
}

// write stores records in batches, one transaction per batch.
func (s *SQLite) write(ch <-chan Record) error {
	batch := make([]Record, 0, sqliteBatch)
	for {
		r, ok := <-ch
		if !ok {
			return s.flush(batch)
		}
		batch = append(batch, r)

	fill:
		for len(batch) < sqliteBatch {
			select {
			case r, ok := <-ch:
				if !ok {
					return s.flush(batch)
				}
				batch = append(batch, r)
			default:
				break fill
			}
		}

		if err := s.flush(batch); err != nil {
			for range ch {
			}
			return err
		}
		batch = batch[:0]
	}
}

func (s *SQLite) flush(batch []Record) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin trace batch: %w", err)
	}
	stmt, err := tx.Prepare(insertEvent)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.Exec(r.Tick, r.Kind, r.ID, r.Task, r.State, r.Priority); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert trace event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trace batch: %w", err)
	}
	return nil
}

// Close writes pending events and closes the database.
func (s *SQLite) Close() error {
	err := s.stop()
	if errors.Is(err, ErrClosed) {
		return err
	}
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// KindCounts returns the number of stored events per kind in the database at path.
func KindCounts(ctx context.Context, path string) (map[string]int, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db %q: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query trace db %q: %w", path, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan trace counts: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}
