// Package imagerender rasterizes PDF pages for OCR.
package imagerender

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// Renderer turns one page (1-based) into PNG bytes.
type Renderer interface {
	RenderPNG(ctx context.Context, pdfPath string, pageNum, dpi int) ([]byte, error)
}

// New returns the renderer for backend ("fitz" or "poppler").
func New(backend, popplerPath string) (Renderer, error) {
	switch backend {
	case "", "fitz":
		return &FitzRenderer{Gray: true}, nil
	case "poppler":
		return &PopplerRenderer{Dir: popplerPath, Gray: true}, nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", backend)
	}
}

// FitzRenderer renders pages in-process with go-fitz.
type FitzRenderer struct {
	Gray bool
}

// RenderPNG renders a PDF page as PNG image (in-memory)
func (r *FitzRenderer) RenderPNG(ctx context.Context, pdfPath string, pageNum, dpi int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	// go-fitz uses 0-based indexing
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}

	out, err := EncodePNG(img, r.Gray)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("page", pageNum).Int("dpi", dpi).Bool("gray", r.Gray).Int("png_size", len(out)).Msg("rendered page")
	return out, nil
}

// EncodePNG encodes img, converting to grayscale first when asked.
func EncodePNG(img image.Image, gray bool) ([]byte, error) {
	final := img
	if gray {
		bounds := img.Bounds()
		g := image.NewGray(bounds)
		draw.Draw(g, bounds, img, bounds.Min, draw.Src)
		final = g
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, final); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGSize reads the pixel size from a PNG header.
func PNGSize(pngBytes []byte) (width, height int, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(pngBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
