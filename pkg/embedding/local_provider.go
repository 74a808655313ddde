package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// DefaultLocalDimension matches the common 768-d hosted models so the pgvector
// column type does not depend on the provider.
const DefaultLocalDimension = 768

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// LocalProvider is an offline feature-hashing embedder: each token is hashed
// into a bucket with a sign bit, then the vector is L2-normalized. It needs no
// corpus preparation, so indexing and querying can run before any model is set up.
type LocalProvider struct {
	dimension int
}

func NewLocalProvider(dimension int) EmbeddingProvider {
	if dimension <= 0 {
		dimension = DefaultLocalDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (p *LocalProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		idx := int(sum % uint32(p.dimension))
		if sum&(1<<31) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: Normalize(vec)},
	}, nil
}
