package custom_error

import (
	"errors"
	"fmt"
)

// Validation errors: the caller sent something malformed or incomplete.
// Surfaced as-is with a 400-class outcome, never retried.
var (
	ErrMissingCancelReason = errors.New("cancellation requires an admin comment")
	ErrMissingAllocation   = errors.New("approval requires at least one allocation entry")
	ErrMalformedAllocation = errors.New("allocation entry has no inventory draws and no cancellation reason")
	ErrInvalidDecision     = errors.New("decision must be approved or canceled")
	ErrMissingComment      = errors.New("returning an order to pending requires a comment")
)

// Conflict/state errors: the request is well-formed but the store disagrees.
var (
	ErrOrderNotFound        = errors.New("no pending distribution found for order number")
	ErrCreatorNotFound      = errors.New("order creator no longer exists")
	ErrInventoryNotFound    = errors.New("inventory item not found")
	ErrOrderNumberExhausted = errors.New("unable to generate a unique order number")
)

// ErrInvariantViolation marks arithmetic that would break the
// 0 <= reserved <= quantity invariant. It should never trigger given correct
// preconditions; when it does the whole transaction rolls back.
var ErrInvariantViolation = errors.New("inventory invariant violation")

// InsufficientStockError is returned when a draw exceeds what is available on
// a specific inventory item. The SKU is part of the message so the admin can
// tell which batch ran dry.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// InventoryTypeMismatchError is returned when an allocation draws from an
// inventory item that belongs to a different item-type than claimed.
type InventoryTypeMismatchError struct {
	SKU            string
	WantItemTypeID int
	GotItemTypeID  int
}

func (e *InventoryTypeMismatchError) Error() string {
	return fmt.Sprintf("inventory item %s belongs to item type %d, not %d", e.SKU, e.GotItemTypeID, e.WantItemTypeID)
}

// InvalidEmployeeTypeError is returned when a client's employee type does not
// map onto a population prefix.
type InvalidEmployeeTypeError struct {
	EmployeeType string
}

func (e *InvalidEmployeeTypeError) Error() string {
	return fmt.Sprintf("invalid employee type: %s", e.EmployeeType)
}

// InvalidStatusError is returned for status values outside the closed enum or
// transitions the lifecycle does not allow.
type InvalidStatusError struct {
	From string
	To   string
}

func (e *InvalidStatusError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("invalid distribution status: %s", e.To)
	}
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// IsValidation reports whether err should surface to the caller as a
// 400-class outcome with its own message.
func IsValidation(err error) bool {
	var employeeType *InvalidEmployeeTypeError
	var status *InvalidStatusError
	return errors.Is(err, ErrMissingCancelReason) ||
		errors.Is(err, ErrMissingAllocation) ||
		errors.Is(err, ErrMalformedAllocation) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, ErrMissingComment) ||
		errors.As(err, &employeeType) ||
		errors.As(err, &status)
}

// IsConflict reports whether err is a client-correctable state conflict.
func IsConflict(err error) bool {
	var stock *InsufficientStockError
	var mismatch *InventoryTypeMismatchError
	return errors.As(err, &stock) || errors.As(err, &mismatch)
}

// IsNotFound reports whether err should surface as a 404-class outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCreatorNotFound) ||
		errors.Is(err, ErrInventoryNotFound)
}
