// Package metadata is a small key-value store for engine state that is not a
// catalog entity: the per-business sync checkpoint and the device identity.
package metadata

import "context"

// GlobalScope is the business id used for installation-wide keys such as the
// device identity.
const GlobalScope = ""

// Well-known keys.
const (
	KeyLastSyncAt = "last_sync_at"
	KeyDeviceID   = "device_id"
)

// Repository stores opaque values per (business, key).
type Repository interface {
	// Get returns the value for key, or nil if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte) error

	Delete(ctx context.Context, key string) error
}
