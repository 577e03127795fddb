package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error classes. Every error returned by the shop domain matches exactly one
// of them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrOutOfStock = errors.New("out of stock")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCartNotFound     = fmt.Errorf("cart %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrInvoiceNotFound  = fmt.Errorf("invoice %w", ErrNotFound)

	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", ErrValidation)
	ErrNegativePrice   = fmt.Errorf("%w: price cannot be negative", ErrValidation)
	ErrSubCentAmount   = fmt.Errorf("%w: amounts cannot have more than two decimal places", ErrValidation)
	ErrEmptyOrder      = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	ErrStockUndefined  = fmt.Errorf("%w: product stock is undefined", ErrValidation)

	ErrProductCodeTaken     = fmt.Errorf("%w: product code is already taken", ErrConflict)
	ErrProductInUse         = fmt.Errorf("%w: product is referenced by existing orders", ErrConflict)
	ErrOrderNumberTaken     = fmt.Errorf("%w: order number is already taken", ErrConflict)
	ErrTrackingNumberTaken  = fmt.Errorf("%w: tracking number is already taken", ErrConflict)
	ErrInvoiceNumberTaken   = fmt.Errorf("%w: invoice number is already taken", ErrConflict)
	ErrCartAlreadyExists    = fmt.Errorf("%w: user already has a cart", ErrConflict)
	ErrCartItemAlreadyExist = fmt.Errorf("%w: product is already in the cart", ErrConflict)
)

func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// OutOfStockError reports how many units of a product are still available.
type OutOfStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Remaining   int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: %d left", e.ProductName, e.Remaining)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}
