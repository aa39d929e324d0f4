// Package store is the local key-value storage the client keeps between runs:
// the bearer token, the cached medical record and the profile image.
package store

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

// Store is a flat string key-value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Open returns the backend named by kind: "keyring" or "file" (the default).
// An empty path selects DefaultPath.
func Open(kind, path string) (Store, error) {
	switch kind {
	case "keyring":
		return NewKeyring("sosai"), nil
	case "", "file":
		if path == "" {
			path = DefaultPath()
		}
		return OpenFile(path)
	}
	return nil, fmt.Errorf("unknown store %q", kind)
}
