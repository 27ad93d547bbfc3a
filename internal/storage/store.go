// Package storage persists small string values under stable keys, the way
// a browser keeps values in local storage.
package storage

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store abstracts key/value persistence (SQLite, in-memory).
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes all given keys together. Missing keys are ignored.
	Remove(keys ...string) error
	Close() error
}
