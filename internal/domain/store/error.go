package store

import "errors"

var (
	ErrNotFound      = errors.New("store not found")
	ErrAlreadyExists = errors.New("store code already registered")
	ErrInactive      = errors.New("store is deactivated")
	ErrInvalidCode   = errors.New("store code must not be empty")
)
