package service

import "errors"

var (
	// ErrForbidden is returned when the caller does not own the meal.
	ErrForbidden = errors.New("not authorized to update this meal")
	// ErrInvalidInput is returned for payloads the ledger refuses to store.
	ErrInvalidInput = errors.New("invalid input")
)
