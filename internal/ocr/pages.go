package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/taskspares/internal/imagerender"
)

// PageExtractor renders each page and runs the engine over it.
type PageExtractor struct {
	Renderer imagerender.Renderer
	Engine   Engine
	DPI      int
	// Count returns the number of pages in the document.
	Count func(pdfPath string) (int, error)
}

func (p *PageExtractor) Name() string { return "ocr:" + p.Engine.Name() }

// PageTexts OCRs the first maxPages pages (all when maxPages <= 0). A page
// that fails is logged and left empty; the call fails only when every page
// failed.
func (p *PageExtractor) PageTexts(ctx context.Context, pdfPath string, maxPages int) ([]string, error) {
	total, err := p.Count(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	n := total
	if maxPages > 0 && maxPages < total {
		n = maxPages
	}

	pages := make([]string, n)
	var lastErr error
	failed := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		text, err := p.page(ctx, pdfPath, i+1)
		if err != nil {
			var missing *ToolMissingError
			if errors.As(err, &missing) {
				return nil, err
			}
			log.Warn().Err(err).Int("page", i+1).Msg("ocr failed on page")
			lastErr = err
			failed++
			continue
		}
		pages[i] = text
		log.Debug().Int("page", i+1).Int("chars", len(text)).Dur("took", time.Since(start)).Msg("page recognized")
	}

	if n > 0 && failed == n {
		return nil, fmt.Errorf("ocr failed on all %d pages: %w", n, lastErr)
	}
	log.Info().Int("pages", n).Int("failed", failed).Str("engine", p.Engine.Name()).Msg("ocr complete")
	return pages, nil
}

func (p *PageExtractor) page(ctx context.Context, pdfPath string, pageNum int) (string, error) {
	img, err := p.Renderer.RenderPNG(ctx, pdfPath, pageNum, p.DPI)
	if err != nil {
		return "", err
	}
	if w, h, err := imagerender.PNGSize(img); err == nil {
		log.Debug().Int("page", pageNum).Int("width", w).Int("height", h).Msg("page image")
	}
	return p.Engine.Recognize(ctx, img)
}
