// Package pdf validates uploaded PDFs and extracts their text content.
//
// Text extraction uses ledongthuc/pdf (pure Go, no CGO) so the service can be
// deployed in a scratch container without MuPDF.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperlens-ai/paperlens/internal/domain"
)

// Extractor extracts plain text from PDF documents.
type Extractor struct{}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText extracts text from all pages of a PDF, annotating each page
// with a "--- Page N ---" marker. Pages that cannot be read or contain no
// text are skipped.
func (e *Extractor) ExtractText(content []byte) (string, error) {
	if len(content) == 0 {
		return "", domain.ExtractionError("empty PDF content", nil)
	}
	return guardParse(func() (string, error) {
		return e.extractText(content)
	})
}

func (e *Extractor) extractText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", domain.ExtractionError("failed to open PDF", err)
	}

	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := pageText(page)
		if err != nil {
			continue // skip unreadable pages
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i, text))
	}

	return strings.Join(parts, "\n\n"), nil
}

// pageText guards GetPlainText, which panics on unusual font and encoding
// structures instead of returning an error.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page parse panic: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// guardParse converts parser panics into extraction errors. The underlying
// library panics on malformed cross-reference tables and object streams
// rather than returning an error.
func guardParse(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.ExtractionError("failed to parse PDF", fmt.Errorf("parser panic: %v", r))
		}
	}()
	return fn()
}

// PageCount returns the number of pages in a PDF, or an error if it cannot
// be opened.
func (e *Extractor) PageCount(content []byte) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			count = 0
			err = domain.ExtractionError("failed to parse PDF", fmt.Errorf("parser panic: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, domain.ExtractionError("failed to open PDF", err)
	}
	return r.NumPage(), nil
}
