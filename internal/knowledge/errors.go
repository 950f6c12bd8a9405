package knowledge

import "errors"

// Sentinel errors shared by the synthesis, evolution, store, and engine
// layers. Callers wrap them with fmt.Errorf("...: %w", Err...) and test
// with errors.Is.
var (
	// ErrNotFound is returned when a project or its knowledge document
	// does not exist.
	ErrNotFound = errors.New("knowledge: not found")

	// ErrVersionConflict is returned when a write's expected version no
	// longer matches the stored version. The write can be retried after
	// re-reading the latest document.
	ErrVersionConflict = errors.New("knowledge: version conflict")

	// ErrNoFragments is returned when a build is requested for a project
	// with no analyzed fragments.
	ErrNoFragments = errors.New("knowledge: no analysis fragments")

	// ErrSynthesisParse marks model output that could not be parsed into a
	// document. The builder recovers from it with a degraded document.
	ErrSynthesisParse = errors.New("knowledge: synthesis output not well-formed")

	// ErrClassification marks a failed or unparsable classification call.
	// The merger recovers from it with the fallback module.
	ErrClassification = errors.New("knowledge: classification failed")

	// ErrInvalidDocument is returned when a document violates a schema
	// invariant.
	ErrInvalidDocument = errors.New("knowledge: invalid document")

	// ErrInvalidRequirement is returned when a completed requirement lacks
	// its origin reference.
	ErrInvalidRequirement = errors.New("knowledge: invalid requirement")

	// ErrInvalidStatus is returned for unknown document statuses.
	ErrInvalidStatus = errors.New("knowledge: invalid status")
)

// IsRetryable reports whether err is a conflict that a caller can retry
// by re-reading the document and recomputing its change.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
