package repository

import (
	"errors"
	"fmt"
)

var ErrProductNotFound = errors.New("product not found")
var ErrInsufficientStock = errors.New("insufficient stock")

type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available,
	)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
