package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLimitExceeded indicates a plan-limit admission check failed.
	ErrLimitExceeded = errors.New("plan limit exceeded")
	// ErrInsufficientStock indicates a packing request exceeds available inventory.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateNumber indicates an invoice number already exists for the supplier.
	ErrDuplicateNumber = errors.New("duplicate invoice number")
)

// UserSafeMessage returns a message safe to surface to API clients.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "record not found"
	case errors.Is(err, ErrLimitExceeded):
		return "plan limit reached, upgrade to continue"
	case errors.Is(err, ErrInsufficientStock):
		return "requested quantity exceeds available stock"
	case errors.Is(err, ErrDuplicateNumber):
		return "an invoice with this number already exists for this supplier"
	default:
		return "operation failed"
	}
}
