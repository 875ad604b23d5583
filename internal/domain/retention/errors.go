package retention

import "errors"

var (
	// ErrUnknownCategory indicates a caller passed a category outside
	// the rule table.
	ErrUnknownCategory = errors.New("unknown data category")

	// ErrPolicyNotAdjustable indicates an attempt to change a legally
	// fixed retention policy.
	ErrPolicyNotAdjustable = errors.New("retention policy is not adjustable")

	// ErrInvalidPeriod indicates a retention period outside the
	// supported enum.
	ErrInvalidPeriod = errors.New("invalid retention period")

	// ErrInventoryUnavailable indicates the data inventory could not
	// be enumerated; the purge run performed no deletions.
	ErrInventoryUnavailable = errors.New("data inventory unavailable")

	// ErrPersistence wraps retention storage failures.
	ErrPersistence = errors.New("retention storage failure")
)
