// Package qerr defines the typed error taxonomy shared across the core.
//
// Recoverable conditions (malformed input, cache misses, optional
// rewrites) are represented as plain result values elsewhere in this
// module and never reach this package. qerr is reserved for the
// programming-bug class of failure: invalid handles, unknown node
// shapes, and other conditions a caller should treat as a bug in the
// calling code rather than a retryable condition.
package qerr

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("%w: ...", qerr.X) for context;
// callers use errors.Is against these sentinels.
var (
	// ErrInvalidInput marks malformed input that a caller failed to
	// validate before calling in. It is returned by the bloom-filter
	// and relation-statistics deserializers and snapshot loaders for
	// truncated or mislabeled data. The JSONL decoder and the
	// optimizer do not return it: an unknown projected column decodes
	// as a String column.
	ErrInvalidInput = errors.New("qcore: invalid input")

	// ErrInvalidHandle marks an operation against an unknown or
	// already-released memory pool ref-id, or an unlatch of a segment
	// that was never latched.
	ErrInvalidHandle = errors.New("qcore: invalid handle")

	// ErrCapacityExceeded marks a memory pool commit that could not be
	// satisfied and for which auto-resize was disabled or insufficient.
	ErrCapacityExceeded = errors.New("qcore: capacity exceeded")

	// ErrContradictionDetected marks a predicate compaction finding an
	// unsatisfiable conjunction; the filter is rewritten to FALSE and
	// this is surfaced via a statistics counter, not propagated as a
	// hard failure.
	ErrContradictionDetected = errors.New("qcore: contradiction detected")

	// ErrTypeMismatch marks a comparison between incompatible types.
	// Constant folding does not return it: a literal comparison of
	// incompatible types is left unfolded and the plan is kept.
	ErrTypeMismatch = errors.New("qcore: type mismatch")
)
