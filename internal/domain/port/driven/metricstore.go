package driven

import (
	"context"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// MetricStore defines the driven port for durable daily-metric storage. It is
// the sync orchestrator's only write target besides the credential store.
type MetricStore interface {
	// Upsert inserts or overwrites the row keyed by
	// (TenantID, ConnectionID, Date, Provider). Re-ingesting the same day
	// supersedes the stored measures; it never duplicates the row.
	Upsert(ctx context.Context, row model.DailyMetric) error

	// ListByConnection returns the stored rows for one connection within the
	// inclusive date range, ordered by date. The sync engine never calls
	// this; it exists for the presentation layer and for tests.
	ListByConnection(ctx context.Context, tenantID, connectionID string, r model.DateRange) ([]model.DailyMetric, error)
}
