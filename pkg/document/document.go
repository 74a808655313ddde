package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Page is one extractable unit of a source file. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Blank reports pages that carry no indexable text.
func (p Page) Blank() bool {
	return strings.TrimSpace(p.Text) == ""
}

// SourcePage is a non-blank page tagged with the file it came from.
type SourcePage struct {
	SourceFile string
	Page
}

// Extractor turns a stored file into pages.
type Extractor interface {
	// PageCount is a cheap pre-scan used as the progress denominator.
	PageCount(path string) (int, error)
	// ExtractPages calls visit for every page in order, blank pages included.
	// A visit error stops extraction and is returned as is.
	ExtractPages(path string, visit func(Page) error) error
}

// Registry picks an extractor by file extension.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry() *Registry {
	text := TextExtractor{}
	return &Registry{
		byExt: map[string]Extractor{
			".pdf": PDFExtractor{},
			".txt": text,
			".md":  text,
		},
	}
}

// Register overrides or adds the extractor for ext (e.g. ".docx").
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Supports reports whether filename has an approved extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extensions lists the approved extensions.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

func (r *Registry) For(filename string) (Extractor, error) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, fmt.Errorf("no extractor for %q", filepath.Ext(filename))
	}
	return e, nil
}
