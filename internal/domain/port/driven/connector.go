package driven

import (
	"context"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// Connector defines the driven port for one provider family's data endpoint.
// Implementations are stateless: given a valid bearer token, a resource
// identifier, and an inclusive date range they return normalized daily rows
// with ConnectionID, Provider, Date, and that family's measures populated
// (TenantID is stamped by the caller).
//
// Connectors never refresh tokens and never retry; freshness is the caller's
// job. A failed call yields a typed error -- an empty slice always means the
// provider returned zero rows.
type Connector interface {
	// Provider identifies the family this connector fetches for.
	Provider() model.Provider

	// FetchDailyMetrics pulls the resource's daily rows for the range.
	FetchDailyMetrics(ctx context.Context, accessToken, resourceID string, r model.DateRange) ([]model.DailyMetric, error)
}
