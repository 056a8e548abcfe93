package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

// Store persists terminal cache entries in a SQLite database so they survive
// process restarts. Payloads round-trip through JSON.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed creates) the cache database at path.
// Pass ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			kind    TEXT    NOT NULL,
			id      INTEGER NOT NULL,
			payload TEXT    NOT NULL,
			PRIMARY KEY (kind, id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get loads the payload for (kind, id) into dst, which must be a pointer.
// Returns false with no error on a miss.
func (s *Store) Get(kind Kind, id int, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRow(
		"SELECT payload FROM cache_entries WHERE kind = ? AND id = ?",
		string(kind), id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading cache entry %s/%d: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decoding cache entry %s/%d: %w", kind, id, err)
	}
	return true, nil
}

// Put stores payload under (kind, id) if status is terminal, replacing any
// previous row. Non-terminal payloads are silently skipped.
func (s *Store) Put(kind Kind, id int, payload any, status domain.Status) error {
	if !status.Terminal() {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s/%d: %w", kind, id, err)
	}
	_, err = s.db.Exec(
		"REPLACE INTO cache_entries (kind, id, payload) VALUES (?, ?, ?)",
		string(kind), id, string(raw),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s/%d: %w", kind, id, err)
	}
	return nil
}

// Delete removes the row for (kind, id), if any.
func (s *Store) Delete(kind Kind, id int) error {
	_, err := s.db.Exec("DELETE FROM cache_entries WHERE kind = ? AND id = ?", string(kind), id)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
