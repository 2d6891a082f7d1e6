package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ToolMissingError reports an OCR command that cannot be resolved.
type ToolMissingError struct {
	Command string
	Err     error
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("ocr tool %q not found: %v", e.Command, e.Err)
}

func (e *ToolMissingError) Unwrap() error { return e.Err }

// TesseractCLI runs the tesseract executable once per page.
type TesseractCLI struct {
	command  string
	language string
	dpi      int
}

// NewTesseractCLI applies defaults: "tesseract", "eng", 300 dpi.
func NewTesseractCLI(o Options) *TesseractCLI {
	t := &TesseractCLI{command: o.Command, language: o.Language, dpi: o.DPI}
	if t.command == "" {
		t.command = "tesseract"
	}
	if t.language == "" {
		t.language = "eng"
	}
	if t.dpi <= 0 {
		t.dpi = 300
	}
	return t
}

func (t *TesseractCLI) Name() string { return "cli" }

// CheckAvailable resolves the command on PATH (or as a path).
func (t *TesseractCLI) CheckAvailable() error {
	if _, err := exec.LookPath(t.command); err != nil {
		return &ToolMissingError{Command: t.command, Err: err}
	}
	return nil
}

// Recognize writes the image to a temp file and reads the text from stdout.
func (t *TesseractCLI) Recognize(ctx context.Context, png []byte) (string, error) {
	tmp, err := os.CreateTemp("", "taskspares-page-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.command, tmp.Name(), "stdout", "-l", t.language, "--dpi", strconv.Itoa(t.dpi))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("tesseract command")
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &ToolMissingError{Command: t.command, Err: err}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("tesseract failed: %s", strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	return stdout.String(), nil
}
