// Package pdftext pulls per-page text out of PDF files.
package pdftext

import (
	"context"
	"fmt"
)

// Extractor returns the text of the first maxPages pages (all pages when
// maxPages <= 0), one string per page.
type Extractor interface {
	Name() string
	PageTexts(ctx context.Context, pdfPath string, maxPages int) ([]string, error)
}

// New returns the extractor for backend ("fitz" or "poppler").
func New(backend, popplerPath string) (Extractor, error) {
	switch backend {
	case "", "fitz":
		return NewFitzExtractor(), nil
	case "poppler":
		return NewPopplerExtractor(popplerPath), nil
	default:
		return nil, fmt.Errorf("unknown text backend %q", backend)
	}
}

// pageLimit clamps maxPages to the document size.
func pageLimit(total, maxPages int) int {
	if maxPages <= 0 || maxPages > total {
		return total
	}
	return maxPages
}
