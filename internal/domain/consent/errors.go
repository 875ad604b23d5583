package consent

import "errors"

var (
	// ErrUnknownConsentType indicates a caller passed a type outside
	// the catalog. Programmer error, not user-facing.
	ErrUnknownConsentType = errors.New("unknown consent type")

	// ErrNonWithdrawable indicates an attempt to withdraw a required
	// consent.
	ErrNonWithdrawable = errors.New("consent cannot be withdrawn")

	// ErrPersistence wraps storage failures. The operation that
	// surfaced it had no partial effect.
	ErrPersistence = errors.New("consent storage failure")
)
