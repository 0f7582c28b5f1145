package service

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrPersistFailure  = errors.New("failed to persist order")
)
