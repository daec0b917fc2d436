// Package storage holds the durable key/value capability used to mirror session
// state across process restarts.
package storage

import "context"

// Well-known keys
const (
	KeyUserInfo     = "userInfo"
	KeyToken        = "keycloak_token"
	KeyRefreshToken = "keycloak_refresh_token"
)

// Store is a string key/value store. Get returns "" for a key that is not present
// and Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
