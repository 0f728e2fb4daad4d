package bundle

import (
	"errors"
	"fmt"
)

// Construction-time and pre-flight errors. None of these are retryable with
// identical parameters.
var (
	// ErrBundleSizeExceeded is raised before any network call when a bundle
	// would exceed the batch executor's static call-count ceiling.
	ErrBundleSizeExceeded = errors.New("bundle size exceeds executor call ceiling")

	// ErrInsufficientBalance is raised by the pre-flight balance probe,
	// before the discovery simulation wastes a round-trip.
	ErrInsufficientBalance = errors.New("insufficient settlement asset balance")

	// ErrInsufficientApproval is raised when an externally-checked allowance
	// turns out to be short of the amount a swap will consume.
	ErrInsufficientApproval = errors.New("insufficient token approval")
)

// RevertError is the single failure surfaced for a whole simulation run when
// any call in the bundle reverts. There are no partial results, matching the
// atomic execution semantics of the real transaction path.
type RevertError struct {
	Index  int // call index reported by the executor, -1 when unknown
	Reason string
}

// Error implements the error interface.
func (e *RevertError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("bundle reverted at call %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("bundle reverted: %s", e.Reason)
}
