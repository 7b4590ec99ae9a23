// Package sentinel holds the infrastructure errors stores and background
// loaders return. Services translate them into domain-errors codes before
// they reach a handler.
package sentinel

import "errors"

var (
	// ErrNotFound: no record with that identity.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the write would give an owner a second holder of a variant.
	ErrConflict = errors.New("conflict")
	// ErrStale: a background result arrived after its owner was closed.
	ErrStale = errors.New("stale result discarded")
)
