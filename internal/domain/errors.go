package domain

import "errors"

// Sentinel errors for the order lifecycle. Handlers map these to HTTP codes;
// usecases wrap them with fmt.Errorf("...: %w", err) for context.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrValidation          = errors.New("validation failed")
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
	ErrInsufficientStock   = errors.New("insufficient stock")

	// ErrUpstreamFailure marks push-provider / pub-sub failures. Never
	// propagated out of a state mutation that already committed.
	ErrUpstreamFailure = errors.New("upstream provider failure")
)
