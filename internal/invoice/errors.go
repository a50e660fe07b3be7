package invoice

import (
	"errors"
	"fmt"
)

// Validation reasons reported by ValidationError.
const (
	ReasonRequired       = "required"
	ReasonDuplicate      = "duplicate"
	ReasonNotPositive    = "must be at least 1"
	ReasonNegative       = "must not be negative"
	ReasonExceedsStock   = "exceeds stock"
	ReasonRateOutOfRange = "must be within [0, 1)"
	ReasonUnknown        = "unknown product"
)

// ValidationError reports the first invalid input found while pricing a cart.
type ValidationError struct {
	Field     string
	ProductID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.ProductID != "" {
		return fmt.Sprintf("invoice: %s of product %s %s", e.Field, e.ProductID, e.Reason)
	}
	return fmt.Sprintf("invoice: %s %s", e.Field, e.Reason)
}

// AsValidationError unwraps err into a ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func invalid(field, productID, reason string) *ValidationError {
	return &ValidationError{Field: field, ProductID: productID, Reason: reason}
}

// UnknownProduct reports a cart reference to a product the catalog does not have.
func UnknownProduct(productID string) *ValidationError {
	return invalid("productId", productID, ReasonUnknown)
}
