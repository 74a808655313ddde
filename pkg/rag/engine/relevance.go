package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"manual-chatbot-be/pkg/vectorindex"
)

// MinOverlap is how many distinct question words (longer than three
// characters) must appear in the retrieved context before it is trusted.
// Tunable, not load-bearing.
const MinOverlap = 2

const contextSeparator = "\n\n---\n\n"

// FormatContext renders hits as source-tagged blocks.
func FormatContext(hits []vectorindex.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("[Source: %s, Page %d]\n%s", h.Chunk.SourceFile, h.Chunk.PageNumber, h.Chunk.Content))
	}
	return strings.Join(parts, contextSeparator)
}

// Overlap counts distinct whitespace-separated question words longer than
// three characters that occur literally in context, case-insensitively.
func Overlap(question, context string) int {
	ctx := strings.ToLower(context)
	seen := make(map[string]bool)
	count := 0
	for _, w := range strings.Fields(strings.ToLower(question)) {
		if seen[w] || utf8.RuneCountInString(w) <= 3 {
			continue
		}
		seen[w] = true
		if strings.Contains(ctx, w) {
			count++
		}
	}
	return count
}

// Relevant reports whether retrieved context can ground an answer. Empty
// context is never relevant.
func Relevant(question, context string, minOverlap int) bool {
	if strings.TrimSpace(context) == "" {
		return false
	}
	return Overlap(question, context) >= minOverlap
}
