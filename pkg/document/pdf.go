package document

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text page by page.
type PDFExtractor struct{}

func (PDFExtractor) PageCount(path string) (n int, err error) {
	defer recoverParse(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}

func (PDFExtractor) ExtractPages(path string, visit func(Page) error) (err error) {
	defer recoverParse(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		text := ""
		if !p.V.IsNull() {
			for _, name := range p.Fonts() {
				if _, ok := fonts[name]; !ok {
					font := p.Font(name)
					fonts[name] = &font
				}
			}
			text, err = p.GetPlainText(fonts)
			if err != nil {
				// One unreadable page is not worth losing the file for.
				text = ""
			}
		}
		if err := visit(Page{Number: i, Text: text}); err != nil {
			return err
		}
	}
	return nil
}

// The pdf package panics on some malformed inputs.
func recoverParse(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}
