//go:build sqlite

package diag

import (
	"context"
	"database/sql"
	"sync"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err = db.PingContext(ctx); err == nil {
		_, err = db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS cluster_statistic (
				run_id    TEXT    NOT NULL,
				sweep     INTEGER NOT NULL,
				model_key TEXT    NOT NULL,
				payload   BLOB    NOT NULL,
				PRIMARY KEY (run_id, sweep)
			)
		`)
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "open sqlite store %q", path)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) getDB() (*sql.DB, error) {
	if s.db == nil {
		return nil, wlmc.ErrStoreClosed
	}
	return s.db, nil
}

func (s *sqliteStore) Append(ctx context.Context, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cluster_statistic (run_id, sweep, model_key, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, sweep) DO UPDATE SET
			model_key = excluded.model_key,
			payload = excluded.payload
	`, rec.RunID, rec.Sweep, rec.ModelKey, EncodeRecord(nil, &rec))
	return err
}

func (s *sqliteStore) Records(ctx context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM cluster_statistic WHERE run_id = ? ORDER BY sweep`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var payload []byte
		if err = rows.Scan(&payload); err != nil {
			return nil, err
		}
		rec, err := DecodeRecord(payload)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
