package extract

import (
	"errors"
	"fmt"
)

// Kind classifies a failed precondition.
type Kind string

const (
	KindMissingPDFPath Kind = "missing_pdf_path"
	KindInvalidConfig  Kind = "invalid_config"
	KindInputNotFound  Kind = "input_not_found"
	KindNotPDF         Kind = "not_pdf"
	KindMissingTool    Kind = "missing_tool"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitMissingTool = 3
)

// PreconditionError is returned before any extraction work starts.
type PreconditionError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func precondition(kind Kind, err error, format string, args ...any) *PreconditionError {
	return &PreconditionError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsPrecondition reports whether err is a precondition failure of the given kind.
func IsPrecondition(err error, kind Kind) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) && pe.Kind == kind
}

// ExitCode maps a Run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		if pe.Kind == KindMissingTool {
			return ExitMissingTool
		}
		return ExitUsage
	}
	return ExitFailure
}
