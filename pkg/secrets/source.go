package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Source that has no value for a name.
var ErrNotFound = errors.New("secret not found")

// Source looks up secret values by name.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Lookup returns the value for name, or ErrNotFound.
	Lookup(ctx context.Context, name string) (string, error)
}
