package model

import "time"

// Connection is a specific external resource (analytics property, verified
// site, listing location) a tenant has linked within one provider family.
// Connections are created during onboarding and are read-only input to the
// sync engine.
type Connection struct {
	ID         int64
	TenantID   string
	Provider   Provider
	ResourceID string // Provider-side identifier: property ID, site URL, or location name.
	Label      string // Human-readable name shown in the dashboard.
	AddedAt    time.Time
}
