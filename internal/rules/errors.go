package rules

import "errors"

var (
	// ErrUnknownAccount is returned when an explicit account hint does not
	// match any configured account.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrUnresolvedAccount is returned when no discriminator matched the
	// document at the required level.
	ErrUnresolvedAccount = errors.New("unable to resolve an account for the statement")

	// ErrMissingStandardField is returned when a vital standard field has no
	// mapping rule for the statement type being processed.
	ErrMissingStandardField = errors.New("standard field is vital but not mapped for this statement type")
)
