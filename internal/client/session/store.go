// Package session persists the cookies a client receives from the API so
// that successive invocations of the CLI share one login.
package session

import "context"

// Store is a small key/value table. Get returns "" for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
