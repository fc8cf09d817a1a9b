// Package store persists learned models in SQLite.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/omereliy/macq-implementSAA/internal/model"
)

// ErrNotFound is returned when no stored model matches a reference.
var ErrNotFound = errors.New("model not found")

// Entry describes one stored model.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Actions   int       `json:"actions" yaml:"actions"`
	Hash      string    `json:"hash" yaml:"hash"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ModelStore is a SQLite-backed model catalogue. It is safe for
// concurrent use.
type ModelStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// Open opens or creates the database at path and migrates it.
func Open(path string, logger *zap.Logger) (*ModelStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; modernc serializes per connection
	db.SetMaxOpenConns(1)

	s := &ModelStore{db: db, dbPath: path, logger: logger}
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("model store opened", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *ModelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ContentHash returns the hash models are deduplicated by.
func ContentHash(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// Save stores m under name and returns its id. Saving a model identical
// to one already stored under the same name returns the existing id.
func (s *ModelStore) Save(ctx context.Context, name, algorithm string, m *model.Model) (string, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode model: %w", err)
	}
	hash := ContentHash(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM models WHERE name = ? AND content_hash = ? LIMIT 1", name, hash).Scan(&existing)
	switch {
	case err == nil:
		s.logger.Debug("model already stored", zap.String("id", existing), zap.String("name", name))
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("failed to look up model: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (id, name, algorithm, document, created_at, content_hash, action_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, algorithm, string(doc), time.Now().UTC().Format(time.RFC3339Nano), hash, len(m.Actions()))
	if err != nil {
		return "", fmt.Errorf("failed to store model: %w", err)
	}
	s.logger.Info("model stored", zap.String("id", id), zap.String("name", name), zap.Int("actions", len(m.Actions())))
	return id, nil
}

// Load returns the model stored under ref: an id, or a name, in which
// case the most recently stored model of that name is returned.
func (s *ModelStore) Load(ctx context.Context, ref string) (*model.Model, Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, algorithm, action_count, content_hash, created_at, document
		FROM models WHERE id = ? OR name = ?
		ORDER BY (id = ?) DESC, rowid DESC LIMIT 1`, ref, ref, ref)
	var e Entry
	var created, doc string
	if err := row.Scan(&e.ID, &e.Name, &e.Algorithm, &e.Actions, &e.Hash, &created, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, Entry{}, fmt.Errorf("failed to load model: %w", err)
	}
	if err := parseCreated(&e, created); err != nil {
		return nil, Entry{}, err
	}
	var m model.Model
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, Entry{}, fmt.Errorf("failed to decode model %s: %w", e.ID, err)
	}
	return &m, e, nil
}

// List returns every stored model in the order they were saved.
func (s *ModelStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, algorithm, action_count, content_hash, created_at
		FROM models ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Name, &e.Algorithm, &e.Actions, &e.Hash, &created); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		if err := parseCreated(&e, created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the model with id.
func (s *ModelStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM models WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Info("model deleted", zap.String("id", id))
	return nil
}

func parseCreated(e *Entry, created string) error {
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp of %s: %w", e.ID, err)
	}
	e.CreatedAt = t
	return nil
}
