package inventory

import "errors"

var (
	ErrNotFound         = errors.New("stock level not found")
	ErrNegativeQuantity = errors.New("stock level cannot become negative")
)
