package document

import (
	"strings"

	"manual-chatbot-be/pkg/utils"
)

// Chunk is the unit of retrieval. Identity is (SourceFile, PageNumber, Ordinal).
type Chunk struct {
	Content    string
	SourceFile string
	PageNumber int
	Ordinal    int
}

// ChunkConfig is fixed configuration, never user input.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// ChunkPages splits every page into overlapping segments. Ordinals run across
// the whole input so they are unique within one indexing run.
func ChunkPages(pages []SourcePage, cfg ChunkConfig) []Chunk {
	var chunks []Chunk
	ordinal := 0
	for _, p := range pages {
		for _, seg := range utils.SplitSegments(p.Text, cfg.Size, cfg.Overlap) {
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Content:    seg.Text,
				SourceFile: p.SourceFile,
				PageNumber: p.Number,
				Ordinal:    ordinal,
			})
			ordinal++
		}
	}
	return chunks
}
