// Package store handles SQLite persistence of the custom text library.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/readaloud/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a text id does not exist.
var ErrNotFound = errors.New("store: text not found")

// Store wraps SQLite access for custom texts.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS texts (
			id INTEGER PRIMARY KEY,
			level TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_texts_level ON texts(level);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddText stores a custom text for a level and returns its id.
func (s *Store) AddText(ctx context.Context, level model.Difficulty, body string) (int64, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return 0, fmt.Errorf("text body is empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO texts (level, body, created_at) VALUES (?, ?, ?)`,
		string(level),
		body,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListTexts returns custom texts in insertion order. An empty level lists all.
func (s *Store) ListTexts(ctx context.Context, level model.Difficulty) ([]model.CustomText, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, body, created_at
		FROM texts
		WHERE (? = '' OR level = ?)
		ORDER BY id ASC`, string(level), string(level))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var texts []model.CustomText
	for rows.Next() {
		var ct model.CustomText
		var lvl, createdAt string
		if err := rows.Scan(&ct.ID, &lvl, &ct.Body, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		ct.Level = model.Difficulty(lvl)
		ct.CreatedAt = parsed
		texts = append(texts, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

// TextsByLevel groups the library bodies by level for corpus loading.
func (s *Store) TextsByLevel(ctx context.Context) (map[model.Difficulty][]string, error) {
	texts, err := s.ListTexts(ctx, "")
	if err != nil {
		return nil, err
	}
	out := map[model.Difficulty][]string{}
	for _, t := range texts {
		out[t.Level] = append(out[t.Level], t.Body)
	}
	return out, nil
}

// RemoveText deletes a custom text by id.
func (s *Store) RemoveText(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM texts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}
