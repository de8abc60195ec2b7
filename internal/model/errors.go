package model

import "errors"

var (
	// ErrProductNotFound is returned when a product name or identifier cannot be resolved.
	ErrProductNotFound = errors.New("product not found")
	// ErrOutletNotFound is returned when an outlet name or identifier cannot be resolved.
	ErrOutletNotFound = errors.New("outlet not found")
)
