package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		filename string
		want     bool
	}{
		{"manual.pdf", true},
		{"MANUAL.PDF", true},
		{"notes.txt", true},
		{"readme.md", true},
		{"photo.jpg", false},
		{"archive", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Supports(tt.filename))
			_, err := r.For(tt.filename)
			assert.Equal(t, tt.want, err == nil)
		})
	}

	assert.ElementsMatch(t, []string{".pdf", ".txt", ".md"}, r.Extensions())
}

func TestTextExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.txt")
	require.NoError(t, os.WriteFile(path, []byte("page one\fpage two\f  \fpage four"), 0644))

	var ex TextExtractor
	n, err := ex.PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var pages []Page
	require.NoError(t, ex.ExtractPages(path, func(p Page) error {
		pages = append(pages, p)
		return nil
	}))
	require.Len(t, pages, 4)
	assert.Equal(t, Page{Number: 2, Text: "page two"}, pages[1])
	assert.True(t, pages[2].Blank())

	_, err = ex.PageCount(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestPDFExtractor_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	var ex PDFExtractor
	_, err := ex.PageCount(path)
	assert.Error(t, err)
	assert.Error(t, ex.ExtractPages(path, func(Page) error { return nil }))
}

func TestChunkPages(t *testing.T) {
	pages := []SourcePage{
		{SourceFile: "a.pdf", Page: Page{Number: 1, Text: strings.Repeat("Brake fluid check. ", 20)}},
		{SourceFile: "a.pdf", Page: Page{Number: 3, Text: "Short page."}},
		{SourceFile: "b.pdf", Page: Page{Number: 1, Text: "Another file."}},
	}

	chunks := ChunkPages(pages, ChunkConfig{Size: 100, Overlap: 20})
	require.Greater(t, len(chunks), 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, "b.pdf", last.SourceFile)
	assert.Equal(t, 1, last.PageNumber)
	assert.Equal(t, "Another file.", last.Content)

	assert.Equal(t, 3, chunks[len(chunks)-2].PageNumber)
}
