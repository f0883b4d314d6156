package model

// Provider identifies one of the external metric sources a tenant can connect.
type Provider string

const (
	ProviderAnalytics     Provider = "analytics"      // Web analytics (sessions, users, page views).
	ProviderSearchConsole Provider = "search_console" // Search performance (clicks, impressions).
	ProviderListings      Provider = "listings"       // Business listings (calls, direction requests).
)

// AllProviders lists every provider family in a stable order. The sync
// orchestrator iterates this slice when enumerating a tenant's connections.
var AllProviders = []Provider{ProviderAnalytics, ProviderSearchConsole, ProviderListings}

// Valid reports whether p is one of the known provider families.
func (p Provider) Valid() bool {
	switch p {
	case ProviderAnalytics, ProviderSearchConsole, ProviderListings:
		return true
	}
	return false
}
