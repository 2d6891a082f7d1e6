package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/taskspares/internal/poppler"
)

// PopplerExtractor shells out to poppler's pdftotext.
type PopplerExtractor struct {
	dir string
}

// NewPopplerExtractor uses pdftotext from dir, or from PATH when dir is empty.
func NewPopplerExtractor(dir string) *PopplerExtractor {
	return &PopplerExtractor{dir: dir}
}

func (p *PopplerExtractor) Name() string { return "poppler" }

// IsAvailable checks if pdftotext can be resolved.
func (p *PopplerExtractor) IsAvailable() error {
	_, err := poppler.Binary(p.dir, "pdftotext")
	return err
}

// PageTexts runs pdftotext over the page range and splits its output on
// form feeds, which pdftotext emits after every page.
func (p *PopplerExtractor) PageTexts(ctx context.Context, pdfPath string, maxPages int) ([]string, error) {
	bin, err := poppler.Binary(p.dir, "pdftotext")
	if err != nil {
		return nil, err
	}

	args := []string{"-enc", "UTF-8", "-f", "1"}
	if maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(maxPages))
	}
	args = append(args, pdfPath, "-")

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("pdftotext command")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pdftotext failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to run pdftotext: %w", err)
	}

	return splitPages(stdout.String()), nil
}

func splitPages(out string) []string {
	pages := strings.Split(out, "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}
