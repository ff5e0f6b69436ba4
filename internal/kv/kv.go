// Package kv provides the small string key/value capability used for
// per-user chart state.
package kv

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the backing storage cannot be used at all.
var ErrUnavailable = errors.New("kv: storage unavailable")

// Store is a string key/value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
