package pipeline

import (
	"errors"
	"fmt"

	"github.com/zombor/spesen-tracker/internal/currency"
	"github.com/zombor/spesen-tracker/internal/scanning"
)

// FailureKind classifies per-file failures. All kinds are non-fatal to
// the batch; the orchestrator converts them into a Failed terminal state.
type FailureKind string

const (
	FailureTransientService    FailureKind = "transient_service"
	FailureMalformedResponse   FailureKind = "malformed_response"
	FailureUnsupportedDocument FailureKind = "unsupported_document"
	FailureUnknownCurrency     FailureKind = "unknown_currency"
	FailureArchive             FailureKind = "archive"
)

// Error is a per-file pipeline failure with a classified kind.
type Error struct {
	Kind FailureKind
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// failure wraps an error with its classified kind for a file.
func failure(file string, err error) *Error {
	return &Error{Kind: classifyFailure(err), File: file, Err: err}
}

// classifyFailure maps collaborator errors onto the failure taxonomy.
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, scanning.ErrUnsupportedDocument):
		return FailureUnsupportedDocument
	case errors.Is(err, scanning.ErrMalformedResponse):
		return FailureMalformedResponse
	case errors.Is(err, currency.ErrUnknownCurrency):
		return FailureUnknownCurrency
	case errors.Is(err, ErrArchive):
		return FailureArchive
	default:
		return FailureTransientService
	}
}

// ErrArchive marks a failed move of a finalized receipt into the archive
// tree. The source file stays in place for operator inspection.
var ErrArchive = errors.New("archiving receipt")
