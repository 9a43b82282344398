package models

import "errors"

// Domain errors surfaced at operation boundaries. Handlers translate these
// into HTTP status codes; everything else is treated as an internal error.
var (
	ErrUnauthenticated = errors.New("sign in required")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingAddress  = errors.New("shipping address not found")
	ErrMissingOrder    = errors.New("order not found")
	ErrMissingItem     = errors.New("cart item not found")

	// ErrVersionConflict means a full cart replace presented a stale version;
	// the caller should re-read and retry.
	ErrVersionConflict = errors.New("cart was modified by another session")

	// ErrReasonRequired guards cancellation: a non-empty reason must accompany
	// any transition to cancelled.
	ErrReasonRequired = errors.New("cancellation requires a reason")

	// ErrAlreadyFinalized is returned when payment confirmation arrives for an
	// order that already left pending. Webhook delivery is at-least-once, so
	// callers treat this as success.
	ErrAlreadyFinalized = errors.New("order already finalized")

	ErrPaymentFailed = errors.New("payment failed")
)
