package repository

import "errors"

var (
	// ErrNotFound is returned by Update/Delete when the id does not exist.
	// Getters report absence as (nil, nil) instead.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write would break a scoped uniqueness rule.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidCredentials covers unknown users, inactive users and bad passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)
