package extract

import (
	"context"
	"errors"
	"fmt"

	"stickermap/constants"
)

// SourceDocument is one window sticker as handed over by the retrieval side:
// raw bytes plus the declared format and the identifier (stock number) the
// resulting report is keyed by.
type SourceDocument struct {
	Content  []byte
	Format   constants.Format
	SourceID string
}

// Method records which extraction path produced a block.
type Method string

const (
	MethodStructured Method = "structured" // embedded text layer
	MethodRecognized Method = "recognized" // rendered + OCR fallback
)

// TextBlock is one unit of extracted text. Confidence is 1.0 for the
// structured path and the recognition engine's reported confidence otherwise.
type TextBlock struct {
	Text       string
	Page       int
	Method     Method
	Confidence float64
}

// TextExtractor is Stage 1: document -> text blocks.
type TextExtractor interface {
	Extract(ctx context.Context, doc SourceDocument) ([]TextBlock, error)
}

// ErrorKind classifies extraction failures.
type ErrorKind string

const (
	UnsupportedFormat ErrorKind = "unsupported_format"
	CorruptDocument   ErrorKind = "corrupt_document"
	NoTextRecoverable ErrorKind = "no_text_recoverable"
)

// ExtractionError is a per-document failure. Callers may skip the vehicle and
// continue the batch; it must never be collapsed into an empty result.
type ExtractionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Kind)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func newExtractionError(kind ErrorKind, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err}
}

// IsExtractionError reports whether err is an ExtractionError of the given kind.
func IsExtractionError(err error, kind ErrorKind) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Kind == kind
}
