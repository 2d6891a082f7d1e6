// Package extract runs one PDF-to-workbook extraction.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/filetype"
	"github.com/local/taskspares/internal/imagerender"
	"github.com/local/taskspares/internal/maintenance"
	"github.com/local/taskspares/internal/metrics"
	"github.com/local/taskspares/internal/ocr"
	"github.com/local/taskspares/internal/pdftest"
	"github.com/local/taskspares/internal/pdftext"
	"github.com/local/taskspares/internal/poppler"
	"github.com/local/taskspares/internal/source"
	"github.com/local/taskspares/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OutputSuffix is appended to the input stem to name the default workbook.
const OutputSuffix = "_tasks_spares.xlsx"

// Prober decides whether a document has a usable text layer.
type Prober interface {
	Check(ctx context.Context, pdfPath string, threshold int) (bool, *pdftest.Diagnostics, error)
}

// Uploader stores a finished workbook at an s3:// URL.
type Uploader interface {
	Upload(ctx context.Context, url string, data []byte, contentType string) error
}

// Deps are the collaborators of a run. Nil fields get the production
// implementation built from the run's configuration.
type Deps struct {
	Resolver *source.Resolver
	Uploader Uploader
	Prober   Prober
	Text     pdftext.Extractor
	OCR      pdftext.Extractor
	// Progress receives the human-readable run summary lines.
	Progress io.Writer
}

// Result describes a finished run.
type Result struct {
	Input    string
	Output   string
	Mode     string
	Pages    int
	Tasks    []*maintenance.Task
	Spares   []maintenance.SparePart
	Duration time.Duration
}

// Run validates preconditions, reads the document, parses it and saves the workbook.
func Run(ctx context.Context, cfg config.ExtractConfig, d Deps) (*Result, error) {
	res, err := Parse(ctx, cfg, d)
	if err != nil {
		return nil, err
	}
	start := time.Now().Add(-res.Duration)

	if err := save(ctx, res, d); err != nil {
		metrics.ObserveRun(res.Mode, "error", time.Since(start))
		return nil, err
	}
	d.printf("Saved Excel file: %s\n", res.Output)

	res.Duration = time.Since(start)
	metrics.ObserveRun(res.Mode, "success", res.Duration)
	metrics.AddExtracted(res.Mode, res.Pages, len(res.Tasks), len(res.Spares))
	log.Info().
		Str("input", res.Input).
		Str("output", res.Output).
		Str("mode", res.Mode).
		Int("pages", res.Pages).
		Int("tasks", len(res.Tasks)).
		Int("spares", len(res.Spares)).
		Dur("took", res.Duration).
		Msg("extraction complete")
	return res, nil
}

// Parse runs everything up to, but not including, writing the workbook.
// Result.Output holds the path the workbook would be written to.
func Parse(ctx context.Context, cfg config.ExtractConfig, d Deps) (res *Result, err error) {
	start := time.Now()
	mode := cfg.Mode
	defer func() {
		if err != nil {
			metrics.ObserveRun(mode, "error", time.Since(start))
		}
	}()

	if strings.TrimSpace(cfg.PDFPath) == "" {
		return nil, precondition(KindMissingPDFPath, nil, "PDF_PATH is not set (use --pdf or the PDF_PATH environment variable)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, precondition(KindInvalidConfig, err, "invalid configuration")
	}

	// Tool checks come first so a misconfigured image fails fast.
	var ext pdftext.Extractor
	switch mode {
	case config.ModeOCR:
		if ext, err = d.ocrExtractor(cfg); err != nil {
			return nil, err
		}
	case config.ModeText:
		if ext, err = d.textExtractor(cfg); err != nil {
			return nil, err
		}
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = &source.Resolver{DataDir: cfg.DataDir}
	}
	in, err := resolver.Resolve(ctx, cfg.PDFPath)
	if err != nil {
		var nf *source.NotFoundError
		if errors.As(err, &nf) {
			return nil, precondition(KindInputNotFound, nil, "PDF file not found: %s", nf.Path)
		}
		return nil, fmt.Errorf("resolve input: %w", err)
	}
	defer in.Cleanup()

	if err := filetype.EnsurePDF(in.Path); err != nil {
		var np *filetype.NotPDFError
		if errors.As(err, &np) {
			return nil, precondition(KindNotPDF, nil, "%s is not a PDF (detected %s)", in.Ref, np.MIMEType)
		}
		return nil, err
	}

	if mode == config.ModeAuto {
		if mode, ext, err = d.chooseMode(ctx, cfg, in.Path); err != nil {
			return nil, err
		}
	}

	d.printf("Reading PDF: %s\n", in.Ref)
	pages := cfg.EffectivePages(mode)
	log.Info().Str("input", in.Ref).Str("mode", mode).Str("extractor", ext.Name()).Int("pages", pages).Msg("extracting page text")

	texts, err := ext.PageTexts(ctx, in.Path, pages)
	if err != nil {
		var missing *ocr.ToolMissingError
		if errors.As(err, &missing) {
			return nil, precondition(KindMissingTool, err, "OCR tool is not available")
		}
		return nil, fmt.Errorf("extract page text: %w", err)
	}

	doc, spares := maintenance.Parse(texts)
	d.printf("Extracted %d task rows.\n", len(doc.Tasks))
	d.printf("Extracted %d spare part rows.\n", len(spares))
	if len(doc.Lines) == 0 {
		log.Warn().Str("input", in.Ref).Str("mode", mode).Msg("no text found in document")
	}

	return &Result{
		Input:    in.Ref,
		Output:   outputPath(cfg, in),
		Mode:     mode,
		Pages:    len(texts),
		Tasks:    doc.Tasks,
		Spares:   spares,
		Duration: time.Since(start),
	}, nil
}

func (d Deps) printf(format string, args ...any) {
	if d.Progress != nil {
		fmt.Fprintf(d.Progress, format, args...)
	}
}

func (d Deps) chooseMode(ctx context.Context, cfg config.ExtractConfig, path string) (string, pdftext.Extractor, error) {
	prober := d.Prober
	if prober == nil {
		prober = pdftest.New()
	}
	hasText, diag, err := prober.Check(ctx, path, cfg.TextThreshold)
	if err != nil {
		return "", nil, fmt.Errorf("probe text layer: %w", err)
	}
	if diag != nil {
		log.Debug().Str("probe", diag.Summary()).Bool("text", hasText).Msg("text layer probe")
	}

	if hasText {
		ext, err := d.textExtractor(cfg)
		return config.ModeText, ext, err
	}
	log.Info().Str("input", path).Msg("no usable text layer, falling back to OCR")
	ext, err := d.ocrExtractor(cfg)
	return config.ModeOCR, ext, err
}

func (d Deps) textExtractor(cfg config.ExtractConfig) (pdftext.Extractor, error) {
	if d.Text != nil {
		return d.Text, nil
	}
	if cfg.TextBackend == config.BackendPoppler {
		p := pdftext.NewPopplerExtractor(cfg.PopplerPath)
		if err := p.IsAvailable(); err != nil {
			return nil, missingTool(err)
		}
		return p, nil
	}
	return pdftext.New(cfg.TextBackend, cfg.PopplerPath)
}

func (d Deps) ocrExtractor(cfg config.ExtractConfig) (pdftext.Extractor, error) {
	if d.OCR != nil {
		return d.OCR, nil
	}

	engine, err := ocr.New(cfg.OCREngine, ocr.Options{Command: cfg.TesseractCmd, Language: cfg.OCRLanguage, DPI: cfg.OCRDPI})
	if err != nil {
		return nil, precondition(KindInvalidConfig, err, "invalid OCR engine")
	}
	if cli, ok := engine.(*ocr.TesseractCLI); ok {
		if err := cli.CheckAvailable(); err != nil {
			return nil, missingTool(err)
		}
	}

	renderer, err := imagerender.New(cfg.RenderBackend, cfg.PopplerPath)
	if err != nil {
		return nil, precondition(KindInvalidConfig, err, "invalid render backend")
	}
	if pr, ok := renderer.(*imagerender.PopplerRenderer); ok {
		if err := pr.IsAvailable(); err != nil {
			return nil, missingTool(err)
		}
	}

	return &ocr.PageExtractor{Renderer: renderer, Engine: engine, DPI: cfg.OCRDPI, Count: pageCounter(cfg.RenderBackend)}, nil
}

// pageCounter opens the document with the same library that renders it.
func pageCounter(renderBackend string) func(string) (int, error) {
	if renderBackend == config.BackendPoppler {
		return source.PageCount
	}
	return pdftext.NewFitzExtractor().PageCount
}

func missingTool(err error) error {
	var pm *poppler.MissingError
	if errors.As(err, &pm) {
		if pm.Dir != "" {
			return precondition(KindMissingTool, err, "%s not found in POPPLER_PATH", pm.Name)
		}
		return precondition(KindMissingTool, err, "%s not found (set POPPLER_PATH)", pm.Name)
	}
	return precondition(KindMissingTool, err, "OCR tool not found (set TESSERACT_CMD)")
}

// outputPath is OutPath when set, otherwise <stem>_tasks_spares.xlsx next to
// a local input, or under DataDir for downloaded inputs.
func outputPath(cfg config.ExtractConfig, in source.Local) string {
	if cfg.OutPath != "" {
		if strings.HasPrefix(cfg.OutPath, "s3://") || filepath.IsAbs(cfg.OutPath) || cfg.DataDir == "" {
			return cfg.OutPath
		}
		return filepath.Join(cfg.DataDir, cfg.OutPath)
	}
	name := in.Stem() + OutputSuffix
	if in.Remote {
		return filepath.Join(cfg.DataDir, name)
	}
	return filepath.Join(filepath.Dir(in.Path), name)
}

func save(ctx context.Context, res *Result, d Deps) error {
	if !strings.HasPrefix(res.Output, "s3://") {
		if err := workbook.Save(res.Output, res.Tasks, res.Spares); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		return nil
	}

	if d.Uploader == nil {
		return fmt.Errorf("output %s needs storage configuration", res.Output)
	}
	var buf bytes.Buffer
	if err := workbook.Write(&buf, res.Tasks, res.Spares); err != nil {
		return err
	}
	if err := d.Uploader.Upload(ctx, res.Output, buf.Bytes(), xlsxContentType); err != nil {
		return fmt.Errorf("upload workbook: %w", err)
	}
	return nil
}
