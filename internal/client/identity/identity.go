// Package identity issues and persists the stable per-installation device id
// that scopes sync state to a device.
package identity

import (
	"context"
	"fmt"

	"github.com/dvasilkov/catalogsync/internal/client/repositories/metadata"
	"github.com/google/uuid"
)

// Provider hands out the device id, creating it on first use.
type Provider struct {
	meta metadata.Repository
}

// NewProvider builds a Provider over installation-wide metadata
// (metadata.GlobalScope).
func NewProvider(meta metadata.Repository) *Provider {
	return &Provider{meta: meta}
}

// Ensure returns the persisted device id, generating and storing a new one if
// none exists yet. The id never changes for the lifetime of the installation.
func (p *Provider) Ensure(ctx context.Context) (string, error) {
	value, err := p.meta.Get(ctx, metadata.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if len(value) > 0 {
		return string(value), nil
	}

	id := uuid.NewString()
	if err := p.meta.Set(ctx, metadata.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}
