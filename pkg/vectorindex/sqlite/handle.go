package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/embedding"
	"manual-chatbot-be/pkg/vectorindex"
)

type handle struct {
	db       *sql.DB
	embedder embedding.EmbeddingProvider

	mu      sync.RWMutex
	chunks  []document.Chunk
	vectors [][]float32
}

func (h *handle) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		content     TEXT NOT NULL,
		source_file TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		ordinal     INTEGER NOT NULL,
		vector      BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_ordinal ON chunks(ordinal);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

func (h *handle) load(ctx context.Context) error {
	rows, err := h.db.QueryContext(ctx, "SELECT content, source_file, page_number, ordinal, vector FROM chunks ORDER BY id")
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	for rows.Next() {
		var c document.Chunk
		var blob []byte
		if err := rows.Scan(&c.Content, &c.SourceFile, &c.PageNumber, &c.Ordinal, &blob); err != nil {
			return fmt.Errorf("scan chunk: %w", err)
		}
		h.chunks = append(h.chunks, c)
		h.vectors = append(h.vectors, decodeVector(blob))
	}
	return rows.Err()
}

func (h *handle) Add(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		res, err := h.embedder.Generate(ctx, c.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", c.Ordinal, err)
		}
		vectors[i] = res.Vector()
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (content, source_file, page_number, ordinal, vector) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.Content, c.SourceFile, c.PageNumber, c.Ordinal, encodeVector(vectors[i])); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert chunk %d: %w", c.Ordinal, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	h.mu.Lock()
	h.chunks = append(h.chunks, chunks...)
	h.vectors = append(h.vectors, vectors...)
	h.mu.Unlock()
	return nil
}

func (h *handle) Search(ctx context.Context, query string, k int) ([]vectorindex.Hit, error) {
	res, err := h.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	idxs, scores := vectorindex.TopK(res.Vector(), h.vectors, k)
	hits := make([]vectorindex.Hit, len(idxs))
	for i, j := range idxs {
		hits[i] = vectorindex.Hit{Chunk: h.chunks[j], Score: scores[i]}
	}
	return hits, nil
}

func (h *handle) Count(ctx context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chunks), nil
}

func (h *handle) Close() error {
	return h.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
