package document

import (
	"os"
	"strings"
)

// pageBreak separates pages in plain-text manuals.
const pageBreak = "\f"

// TextExtractor reads .txt/.md files; form feeds split pages.
type TextExtractor struct{}

func (TextExtractor) PageCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(strings.Split(string(data), pageBreak)), nil
}

func (TextExtractor) ExtractPages(path string, visit func(Page) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for i, text := range strings.Split(string(data), pageBreak) {
		if err := visit(Page{Number: i + 1, Text: text}); err != nil {
			return err
		}
	}
	return nil
}
