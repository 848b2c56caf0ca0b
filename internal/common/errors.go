// Package common defines shared constants and sentinel errors used across
// the catalog sync engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Sync-level errors.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrUnavailable    = errors.New("server unavailable")

	// Validation errors (bad input to the CRUD facade).
	ErrValidation = errors.New("validation error")

	// Category tree errors.
	ErrCategoryCycle = errors.New("category parent assignment would create a cycle")
)
