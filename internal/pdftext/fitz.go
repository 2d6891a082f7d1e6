package pdftext

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// FitzExtractor uses go-fitz (MuPDF, in-process) for text extraction.
type FitzExtractor struct{}

// NewFitzExtractor creates a new go-fitz based extractor
func NewFitzExtractor() *FitzExtractor {
	return &FitzExtractor{}
}

func (g *FitzExtractor) Name() string { return "fitz" }

// PageCount returns the number of pages in a PDF using go-fitz
func (g *FitzExtractor) PageCount(pdfPath string) (int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// PageTexts extracts page texts. A page that fails to extract is logged and
// returned as an empty string so page positions stay stable.
func (g *FitzExtractor) PageTexts(ctx context.Context, pdfPath string, maxPages int) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := pageLimit(doc.NumPage(), maxPages)
	log.Debug().Str("pdf", pdfPath).Int("pages", n).Int("total", doc.NumPage()).Msg("extracting text with go-fitz")

	pages := make([]string, 0, n)
	chars := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("failed to extract text from page")
			text = ""
		}
		chars += len(text)
		pages = append(pages, text)
	}

	log.Debug().Int("chars", chars).Msg("extracted text from PDF")
	return pages, nil
}
