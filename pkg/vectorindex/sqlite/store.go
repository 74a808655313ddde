// Package sqlite keeps each namespace in its own SQLite file inside the
// namespace directory. Rows are loaded into memory on open and scored by
// brute-force cosine similarity, which is plenty for a few manuals.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"manual-chatbot-be/pkg/embedding"
	"manual-chatbot-be/pkg/vectorindex"

	_ "modernc.org/sqlite"
)

const fileName = "index.db"

type Store struct {
	embedder embedding.EmbeddingProvider
}

var _ vectorindex.Store = &Store{}

func NewStore(embedder embedding.EmbeddingProvider) *Store {
	return &Store{embedder: embedder}
}

func dbPath(ns vectorindex.Namespace) string {
	return filepath.Join(ns.Dir, fileName)
}

func (s *Store) Open(ctx context.Context, ns vectorindex.Namespace) (vectorindex.Handle, error) {
	if _, err := os.Stat(dbPath(ns)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, vectorindex.ErrNotFound
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}

	h, err := s.open(ctx, ns)
	if err != nil {
		return nil, err
	}
	if err := h.load(ctx); err != nil {
		h.Close()
		return nil, err
	}
	if len(h.chunks) == 0 {
		h.Close()
		return nil, vectorindex.ErrNotFound
	}
	return h, nil
}

// Create expects ns.Dir to exist; it is owned by the session, not the index,
// so a deleted session is never brought back by a late writer.
func (s *Store) Create(ctx context.Context, ns vectorindex.Namespace) (vectorindex.Handle, error) {
	if _, err := os.Stat(ns.Dir); err != nil {
		return nil, fmt.Errorf("index dir: %w", err)
	}
	return s.open(ctx, ns)
}

// Drop removes the index file. A namespace without a directory has nothing on disk.
func (s *Store) Drop(ctx context.Context, ns vectorindex.Namespace) error {
	if ns.Dir == "" {
		return nil
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath(ns) + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("drop index: %w", err)
		}
	}
	return nil
}

func (s *Store) open(ctx context.Context, ns vectorindex.Namespace) (*handle, error) {
	db, err := sql.Open("sqlite", dbPath(ns)+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &handle{db: db, embedder: s.embedder}
	if err := h.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return h, nil
}
