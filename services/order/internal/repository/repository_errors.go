package repository

import "errors"

var ErrOrderNotFound = errors.New("order not found")
var ErrInvalidStatusTransition = errors.New("invalid status transition")
