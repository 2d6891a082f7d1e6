package imagerender

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

// PopplerRenderer shells out to poppler's pdftoppm.
type PopplerRenderer struct {
	// Dir holds pdftoppm; empty means PATH.
	Dir  string
	Gray bool
}

// IsAvailable checks if pdftoppm can be resolved.
func (r *PopplerRenderer) IsAvailable() error {
	_, err := poppler.Binary(r.Dir, "pdftoppm")
	return err
}

// RenderPNG runs pdftoppm for a single page and returns its stdout.
func (r *PopplerRenderer) RenderPNG(ctx context.Context, pdfPath string, pageNum, dpi int) ([]byte, error) {
	bin, err := poppler.Binary(r.Dir, "pdftoppm")
	if err != nil {
		return nil, err
	}

	page := strconv.Itoa(pageNum)
	args := []string{"-png", "-r", strconv.Itoa(dpi), "-f", page, "-l", page, "-singlefile"}
	if r.Gray {
		args = append(args, "-gray")
	}
	args = append(args, pdfPath)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("pdftoppm command")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pdftoppm failed on page %d: %s", pageNum, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to run pdftoppm: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d", pageNum)
	}
	return stdout.Bytes(), nil
}
