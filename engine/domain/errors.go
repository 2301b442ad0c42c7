package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownCorpus   = errors.New("unknown corpus")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNonPositiveTopK = errors.New("top_k must be positive")
	ErrEmptyDocument   = errors.New("document text is empty")
	ErrEmptyDocumentID = errors.New("document id is empty")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// DependencyError marks a failure of an external backend (embedding model,
// vector index, generation model) so callers can distinguish it from "no
// relevant passages found". Not retried internally; retry belongs to the
// caller.
type DependencyError struct {
	Backend string
	Corpus  Corpus
	DocID   string
	Err     error
}

func (e *DependencyError) Error() string {
	if e.DocID != "" {
		return fmt.Sprintf("dependency %s failed (corpus=%s doc=%s): %v", e.Backend, e.Corpus, e.DocID, e.Err)
	}
	if e.Corpus != "" {
		return fmt.Sprintf("dependency %s failed (corpus=%s): %v", e.Backend, e.Corpus, e.Err)
	}
	return fmt.Sprintf("dependency %s failed: %v", e.Backend, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NewDependencyError wraps err with the backend and scope that produced it.
func NewDependencyError(backend string, corpus Corpus, docID string, err error) *DependencyError {
	return &DependencyError{Backend: backend, Corpus: corpus, DocID: docID, Err: err}
}

// IsDependency reports whether err is (or wraps) a DependencyError.
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
