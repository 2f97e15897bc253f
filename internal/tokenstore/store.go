// Package tokenstore keeps the session's auth token. A secure tier
// (encrypted file) is preferred; when it is unavailable reads and writes fall
// back transparently to a general key-value tier (Redis or process memory).
package tokenstore

import "context"

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

// AuthTokenKey is the only key shared with the rest of the app.
const AuthTokenKey = "auth_token"

// Store reads and writes string secrets by key.
// Get returns sentinel.ErrNotFound (possibly wrapped) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
