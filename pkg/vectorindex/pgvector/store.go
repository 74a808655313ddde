// Package pgvector keeps every namespace in one shared Postgres table,
// partitioned by the namespace column and searched with the <=> operator.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/embedding"
	"manual-chatbot-be/pkg/vectorindex"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Store struct {
	db       *gorm.DB
	embedder embedding.EmbeddingProvider
}

var _ vectorindex.Store = &Store{}

func NewStore(db *gorm.DB, embedder embedding.EmbeddingProvider) *Store {
	return &Store{db: db, embedder: embedder}
}

// Migrate enables the vector extension and creates the table.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, stmt := range []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("prepare extensions: %w", err)
		}
	}
	return db.AutoMigrate(&ChunkEmbedding{})
}

func (s *Store) Open(ctx context.Context, ns vectorindex.Namespace) (vectorindex.Handle, error) {
	h := &handle{db: s.db, embedder: s.embedder, namespace: ns.Name}
	n, err := h.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, vectorindex.ErrNotFound
	}
	return h, nil
}

func (s *Store) Create(ctx context.Context, ns vectorindex.Namespace) (vectorindex.Handle, error) {
	return &handle{db: s.db, embedder: s.embedder, namespace: ns.Name}, nil
}

func (s *Store) Drop(ctx context.Context, ns vectorindex.Namespace) error {
	return s.db.WithContext(ctx).Where("namespace = ?", ns.Name).Delete(&ChunkEmbedding{}).Error
}

type handle struct {
	db        *gorm.DB
	embedder  embedding.EmbeddingProvider
	namespace string
}

func (h *handle) Add(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]*ChunkEmbedding, 0, len(chunks))
	for _, c := range chunks {
		res, err := h.embedder.Generate(ctx, c.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", c.Ordinal, err)
		}
		vec := res.Vector()
		meta, err := json.Marshal(chunkMetadata{Dimension: len(vec), TaskType: embedding.TaskRetrievalDocument})
		if err != nil {
			return err
		}
		rows = append(rows, &ChunkEmbedding{
			Namespace:      h.namespace,
			Content:        c.Content,
			SourceFile:     c.SourceFile,
			PageNumber:     c.PageNumber,
			Ordinal:        c.Ordinal,
			Metadata:       datatypes.JSON(meta),
			EmbeddingValue: pgvector.NewVector(vec),
		})
	}

	return h.db.WithContext(ctx).Create(&rows).Error
}

func (h *handle) Search(ctx context.Context, query string, k int) ([]vectorindex.Hit, error) {
	if k <= 0 {
		k = 5
	}
	res, err := h.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Cosine distance in pgvector is 1 - cosine similarity.
	type result struct {
		ChunkEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(res.Vector())
	err = h.db.WithContext(ctx).
		Model(&ChunkEmbedding{}).
		Select("chunk_embeddings.*, 1 - (embedding_value <=> ?) AS similarity", queryVector).
		Where("namespace = ?", h.namespace).
		Order(gorm.Expr("embedding_value <=> ?", queryVector)).
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	hits := make([]vectorindex.Hit, len(results))
	for i, r := range results {
		hits[i] = vectorindex.Hit{
			Chunk: document.Chunk{
				Content:    r.Content,
				SourceFile: r.SourceFile,
				PageNumber: r.PageNumber,
				Ordinal:    r.Ordinal,
			},
			Score: r.Similarity,
		}
	}
	return hits, nil
}

func (h *handle) Count(ctx context.Context) (int, error) {
	var count int64
	err := h.db.WithContext(ctx).Model(&ChunkEmbedding{}).Where("namespace = ?", h.namespace).Count(&count).Error
	return int(count), err
}

// Close is a no-op; the connection pool is owned by the caller.
func (h *handle) Close() error {
	return nil
}
