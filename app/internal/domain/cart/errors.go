package cart

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrItemNotFound    = errors.New("cart item not found")
)
