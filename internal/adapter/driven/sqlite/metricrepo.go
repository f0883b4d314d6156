package sqlite

import (
	"context"
	"fmt"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetricStore = (*MetricRepo)(nil)

// MetricRepo is the SQLite implementation of the MetricStore port.
type MetricRepo struct {
	db *DB
}

// NewMetricRepo creates a new MetricRepo backed by the given DB.
func NewMetricRepo(db *DB) *MetricRepo {
	return &MetricRepo{db: db}
}

// Upsert inserts or overwrites the row keyed by (tenant, connection, date, provider).
// The sync engine re-pulls overlapping backfill windows on every run, so the
// same key is written repeatedly with last-write-wins semantics.
func (r *MetricRepo) Upsert(ctx context.Context, row model.DailyMetric) error {
	const query = `
		INSERT INTO daily_metrics (
			tenant_id, connection_id, date, provider,
			sessions, active_users, page_views,
			clicks, impressions, ctr, avg_position,
			call_clicks, website_clicks, direction_requests, profile_views,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id, connection_id, date, provider) DO UPDATE SET
			sessions = excluded.sessions,
			active_users = excluded.active_users,
			page_views = excluded.page_views,
			clicks = excluded.clicks,
			impressions = excluded.impressions,
			ctr = excluded.ctr,
			avg_position = excluded.avg_position,
			call_clicks = excluded.call_clicks,
			website_clicks = excluded.website_clicks,
			direction_requests = excluded.direction_requests,
			profile_views = excluded.profile_views,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.Writer.ExecContext(ctx, query,
		row.TenantID, row.ConnectionID, row.Date, string(row.Provider),
		row.Sessions, row.ActiveUsers, row.PageViews,
		row.Clicks, row.Impressions, row.CTR, row.AvgPosition,
		row.CallClicks, row.WebsiteClicks, row.DirectionRequests, row.ProfileViews,
	)
	if err != nil {
		return fmt.Errorf("upsert metric (%s, %s, %s, %s): %w",
			row.TenantID, row.ConnectionID, row.Date, row.Provider, err)
	}
	return nil
}

// ListByConnection returns the stored rows for one connection within the
// inclusive date range, ordered by date.
func (r *MetricRepo) ListByConnection(ctx context.Context, tenantID, connectionID string, dr model.DateRange) ([]model.DailyMetric, error) {
	const query = `
		SELECT tenant_id, connection_id, date, provider,
		       sessions, active_users, page_views,
		       clicks, impressions, ctr, avg_position,
		       call_clicks, website_clicks, direction_requests, profile_views
		FROM daily_metrics
		WHERE tenant_id = ? AND connection_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, tenantID, connectionID, dr.Start, dr.End)
	if err != nil {
		return nil, fmt.Errorf("list metrics for connection %q: %w", connectionID, err)
	}
	defer rows.Close()

	metrics := []model.DailyMetric{}
	for rows.Next() {
		var (
			m        model.DailyMetric
			provider string
		)
		err := rows.Scan(
			&m.TenantID, &m.ConnectionID, &m.Date, &provider,
			&m.Sessions, &m.ActiveUsers, &m.PageViews,
			&m.Clicks, &m.Impressions, &m.CTR, &m.AvgPosition,
			&m.CallClicks, &m.WebsiteClicks, &m.DirectionRequests, &m.ProfileViews,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.Provider = model.Provider(provider)
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}

	return metrics, nil
}
