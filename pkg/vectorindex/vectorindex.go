// Package vectorindex stores embedded chunks per namespace and answers
// nearest-neighbour queries against them.
package vectorindex

import (
	"context"
	"errors"

	"manual-chatbot-be/pkg/document"
)

// ErrNotFound is returned by Store.Open when a namespace has no index yet.
var ErrNotFound = errors.New("vector index not found")

// Namespace isolates one session's chunks. Dir is used by file-backed stores,
// Name by shared-table stores.
type Namespace struct {
	Name string
	Dir  string
}

// Hit is one search result, best first. Score is cosine similarity.
type Hit struct {
	Chunk document.Chunk
	Score float64
}

type Store interface {
	// Open returns a handle over an existing, non-empty namespace or ErrNotFound.
	Open(ctx context.Context, ns Namespace) (Handle, error)
	// Create returns a handle over an empty namespace, creating storage as needed.
	Create(ctx context.Context, ns Namespace) (Handle, error)
	// Drop removes every chunk of the namespace. Dropping a missing namespace is not an error.
	Drop(ctx context.Context, ns Namespace) error
}

// Handle embeds through the store's embedding provider, so callers pass text only.
type Handle interface {
	Add(ctx context.Context, chunks []document.Chunk) error
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
