// Package utils provides low-level byte, buffer and error helpers shared
// across the heap-graph pipeline.
package utils

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the pipeline must react to it, independent
// of the concrete Go error type. See the error handling design for the
// propagation policy attached to each kind.
type Kind uint8

const (
	// KindUnspecified is the zero value; Wrap never produces it.
	KindUnspecified Kind = iota
	// KindInputMissing marks an absent sidecar file. Recoverable per file.
	KindInputMissing
	// KindInputMalformed marks a sidecar missing a required key. Recoverable per file.
	KindInputMalformed
	// KindParseDiverged marks an allocator header that yields a zero size or
	// runs past the end of the dump. Aborts the file, which in turn aborts
	// the enclosing shard.
	KindParseDiverged
	// KindInvariantViolated marks a violation of the graph invariants. Fatal.
	KindInvariantViolated
	// KindIOFailure marks a read or write failure. Fatal for the affected shard.
	KindIOFailure
)

// String returns a lowercase, log-friendly name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInputMissing:
		return "input_missing"
	case KindInputMalformed:
		return "input_malformed"
	case KindParseDiverged:
		return "parse_diverged"
	case KindInvariantViolated:
		return "invariant_violated"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unspecified"
	}
}

// Recoverable reports whether a per-file error of this kind should degrade
// to an empty output for that file rather than aborting the shard.
func (k Kind) Recoverable() bool {
	return k == KindInputMissing || k == KindInputMalformed
}

// PipelineError is a structured, contextual error carrying a Kind so callers
// can branch with errors.As rather than string matching.
type PipelineError struct {
	Kind    Kind
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap/errors.Is/errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Wrap creates a contextual, kind-tagged error. Returns nil if cause is nil.
func Wrap(kind Kind, context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &PipelineError{Kind: kind, Context: context, Cause: cause}
}

// New creates a contextual, kind-tagged error with no underlying cause.
func New(kind Kind, context string) error {
	return &PipelineError{Kind: kind, Context: context}
}

// KindOf extracts the Kind of err, returning KindUnspecified if err does not
// wrap a PipelineError.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnspecified
}
