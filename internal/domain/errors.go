package domain

import "errors"

var (
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateItem     = errors.New("item name already exists")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidItem       = errors.New("invalid item")
)
