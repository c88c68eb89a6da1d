package services

import "errors"

var (
	// ErrDataUnavailable marks a failed read of the catalog or activity history
	ErrDataUnavailable = errors.New("catalog data unavailable")

	ErrProductNotFound = errors.New("product not found")
)
