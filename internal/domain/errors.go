// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict or a duplicate entity.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates that input failed domain validation.
// Wrap it after the offending detail: fmt.Errorf("rating out of range: %w", ErrValidation).
var ErrValidation = errors.New("validation failed")
