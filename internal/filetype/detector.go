// Package filetype checks input files by content rather than by name.
package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const pdfMIME = "application/pdf"

// NotPDFError is returned when a file's magic bytes are not a PDF's.
type NotPDFError struct {
	Path     string
	MIMEType string
}

func (e *NotPDFError) Error() string {
	return fmt.Sprintf("%s is not a PDF (detected %s)", e.Path, e.MIMEType)
}

// Info contains detected file type information
type Info struct {
	MIMEType  string
	Extension string
}

// Detect detects the actual file type using magic bytes, not filename
func Detect(path string) (*Info, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	info := &Info{MIMEType: mtype.String(), Extension: mtype.Extension()}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", path).Msg("detected file type")
	return info, nil
}

// EnsurePDF fails with *NotPDFError unless path holds a PDF.
func EnsurePDF(path string) error {
	info, err := Detect(path)
	if err != nil {
		return err
	}
	if !mimetype.EqualsAny(info.MIMEType, pdfMIME) {
		return &NotPDFError{Path: path, MIMEType: info.MIMEType}
	}
	return nil
}
