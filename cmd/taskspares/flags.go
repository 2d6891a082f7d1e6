package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	"github.com/local/taskspares/internal/metrics"
	"github.com/local/taskspares/internal/source"
	"github.com/local/taskspares/internal/storage"
)

func addExtractFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("pdf", "", "input PDF: path, file://, http(s):// or s3:// (env PDF_PATH)")
	f.String("out", "", "output XLSX path or s3:// URL (env OUT_PATH, default <pdf_stem>_tasks_spares.xlsx)")
	f.String("data-dir", "", "directory relative paths are resolved against (env DATA_DIR)")
	f.String("mode", "", "extraction mode: auto, text or ocr (env EXTRACT_MODE, default auto)")
	f.Int("pages", 0, "number of pages to read, 0 for all (env PAGES, OCR default 5)")
	f.String("tesseract-cmd", "", "tesseract executable (env TESSERACT_CMD)")
	f.String("poppler-path", "", "directory holding poppler binaries (env POPPLER_PATH)")
	f.String("text-backend", "", "page text backend: fitz or poppler (env TEXT_BACKEND)")
	f.String("render-backend", "", "OCR page render backend: fitz or poppler (env RENDER_BACKEND)")
	f.String("ocr-engine", "", "OCR engine: cli, or gosseract when built with -tags gosseract (env OCR_ENGINE)")
	f.String("lang", "", "OCR language (env OCR_LANG)")
	f.Int("dpi", 0, "OCR render resolution (env OCR_DPI)")
}

// extractConfig loads the environment and overlays the flags that were set.
func extractConfig(cmd *cobra.Command) (cfgpkg.ExtractConfig, error) {
	cfg := cfgpkg.FromEnv().Extract
	fs := cmd.Flags()

	strs := map[string]*string{
		"pdf":            &cfg.PDFPath,
		"out":            &cfg.OutPath,
		"data-dir":       &cfg.DataDir,
		"mode":           &cfg.Mode,
		"tesseract-cmd":  &cfg.TesseractCmd,
		"poppler-path":   &cfg.PopplerPath,
		"text-backend":   &cfg.TextBackend,
		"render-backend": &cfg.RenderBackend,
		"ocr-engine":     &cfg.OCREngine,
		"lang":           &cfg.OCRLanguage,
	}
	for name, dst := range strs {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			if err != nil {
				return cfg, err
			}
			*dst = strings.TrimSpace(v)
		}
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	cfg.TextBackend = strings.ToLower(cfg.TextBackend)
	cfg.RenderBackend = strings.ToLower(cfg.RenderBackend)
	cfg.OCREngine = strings.ToLower(cfg.OCREngine)

	if fs.Changed("pages") {
		n, err := fs.GetInt("pages")
		if err != nil {
			return cfg, err
		}
		cfg.Pages, cfg.PagesSet = n, true
	}
	if fs.Changed("dpi") {
		n, err := fs.GetInt("dpi")
		if err != nil {
			return cfg, err
		}
		cfg.OCRDPI = n
	}
	return cfg, nil
}

// newDeps wires S3 only when a reference needs it.
func newDeps(ctx context.Context, cfg cfgpkg.ExtractConfig, sc cfgpkg.StorageConfig) (extract.Deps, error) {
	deps := extract.Deps{Resolver: &source.Resolver{DataDir: cfg.DataDir}}
	if !strings.HasPrefix(cfg.PDFPath, "s3://") && !strings.HasPrefix(cfg.OutPath, "s3://") {
		return deps, nil
	}
	s3c, err := storage.NewS3Client(ctx, sc)
	if err != nil {
		return deps, err
	}
	deps.Resolver.S3 = s3c
	deps.Uploader = s3c
	return deps, nil
}

func withTimeout(ctx context.Context, cfg cfgpkg.ExtractConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func writeTextfile() {
	path := cfgpkg.FromEnv().Metrics.Textfile
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
	}
}
