/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place. The API layer maps these onto HTTP
  status codes with IsNotFound / IsClientError.

ERROR CATEGORIES:
  1. Not-found errors - stale references from the client
  2. Stock errors - user-correctable cart problems
  3. Validation errors - malformed carts

None of these benefit from retry: they are either bad input or "this no
longer exists". Any of them aborts the surrounding store transaction
before being surfaced.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOrderNotFound is returned when a referenced order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrLogNotFound is returned when a referenced debt log doesn't exist
	// or belongs to a different customer.
	ErrLogNotFound = errors.New("debt log not found")

	// ErrProductNotFound is returned by the catalog store for missing products.
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned when a cart line exceeds available
	// stock or names a variant that no longer exists.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart is returned when a checkout or edit carries no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity is returned for zero or negative line quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports the offending product by name so the
// operator can fix the cart.
type InsufficientStockError struct {
	Product   string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.Product, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrLogNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidQuantity)
}
