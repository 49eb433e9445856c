// Package kernels implements the algorithmic factorization methods the
// engine's pipeline stages invoke: trial division, Pollard rho (Brent),
// staged ECM, and classical Shor order-finding.
//
// Every kernel returns the same sum-typed Outcome instead of raising or
// mixing None/exception/dict-diagnostic returns, per the engine's redesign
// of the source's ad hoc error signaling.
package kernels

import "math/big"

// OutcomeKind discriminates the sum type returned by every kernel.
type OutcomeKind int

const (
	// NotFound means the kernel ran to completion (or exhausted its budget)
	// without discovering a factor. This is a normal, expected result that
	// simply advances the pipeline to the next stage.
	NotFound OutcomeKind = iota
	// Found means the kernel discovered a non-trivial factor.
	Found
	// Timeout means the kernel's internal wall-clock budget was exhausted;
	// kernels also return it when their cancel token reports cancellation.
	Timeout
	// KernelError means something unexpected happened (not an ordinary
	// negative result); the engine logs it and advances to the next stage,
	// unless the job's token was cancelled.
	KernelError
)

func (k OutcomeKind) String() string {
	switch k {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Timeout:
		return "timeout"
	case KernelError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result every kernel returns in place of raising an
// exception or returning (value, diagnostics-dict).
type Outcome struct {
	Kind    OutcomeKind
	Factor  *big.Int // non-nil iff Kind == Found
	Err     error    // non-nil iff Kind == KernelError
	Message string   // human-readable detail, always set
}

// OutcomeFound builds a Found outcome.
func OutcomeFound(factor *big.Int, message string) Outcome {
	return Outcome{Kind: Found, Factor: factor, Message: message}
}

// OutcomeNotFound builds a NotFound outcome.
func OutcomeNotFound(message string) Outcome {
	return Outcome{Kind: NotFound, Message: message}
}

// OutcomeTimeout builds a Timeout outcome.
func OutcomeTimeout(message string) Outcome {
	return Outcome{Kind: Timeout, Message: message}
}

// OutcomeError builds a KernelError outcome.
func OutcomeError(err error) Outcome {
	return Outcome{Kind: KernelError, Err: err, Message: err.Error()}
}

// ProgressFunc is invoked periodically by long-running kernels with the
// current candidate value and a free-form stage note.
type ProgressFunc func(candidate *big.Int, note string)
