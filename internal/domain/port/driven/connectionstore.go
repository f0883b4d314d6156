package driven

import (
	"context"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// ConnectionStore defines the driven port for the connection registry: which
// provider resources (properties, sites, locations) each tenant has linked.
// The sync engine consumes it read-only; Add and Remove serve the onboarding
// surface.
type ConnectionStore interface {
	// Add registers a connection. Re-adding the same
	// (tenant, provider, resource) tuple replaces the label.
	Add(ctx context.Context, conn model.Connection) error

	// Remove unregisters a connection. Removing a missing connection is not
	// an error.
	Remove(ctx context.Context, tenantID string, provider model.Provider, resourceID string) error

	// ListByTenant returns the tenant's connections for one provider family,
	// ordered by resource. Returns an empty slice, never nil, when the tenant
	// has none.
	ListByTenant(ctx context.Context, tenantID string, provider model.Provider) ([]model.Connection, error)
}
