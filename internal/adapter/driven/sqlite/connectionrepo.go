package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConnectionStore = (*ConnectionRepo)(nil)

// ConnectionRepo is the SQLite implementation of the ConnectionStore port.
type ConnectionRepo struct {
	db *DB
}

// NewConnectionRepo creates a new ConnectionRepo backed by the given DB.
func NewConnectionRepo(db *DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// Add registers a connection. Re-adding the same (tenant, provider, resource)
// tuple replaces the label.
func (r *ConnectionRepo) Add(ctx context.Context, conn model.Connection) error {
	const query = `
		INSERT INTO connections (tenant_id, provider, resource_id, label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, provider, resource_id) DO UPDATE SET
			label = excluded.label
	`
	_, err := r.db.Writer.ExecContext(ctx, query, conn.TenantID, string(conn.Provider), conn.ResourceID, conn.Label)
	if err != nil {
		return fmt.Errorf("add connection %s/%s for tenant %q: %w", conn.Provider, conn.ResourceID, conn.TenantID, err)
	}
	return nil
}

// Remove unregisters a connection. Removing a missing connection is not an error.
func (r *ConnectionRepo) Remove(ctx context.Context, tenantID string, provider model.Provider, resourceID string) error {
	const query = `DELETE FROM connections WHERE tenant_id = ? AND provider = ? AND resource_id = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, tenantID, string(provider), resourceID)
	if err != nil {
		return fmt.Errorf("remove connection %s/%s for tenant %q: %w", provider, resourceID, tenantID, err)
	}
	return nil
}

// ListByTenant returns the tenant's connections for one provider family, ordered by resource.
func (r *ConnectionRepo) ListByTenant(ctx context.Context, tenantID string, provider model.Provider) ([]model.Connection, error) {
	const query = `
		SELECT id, tenant_id, provider, resource_id, label, added_at
		FROM connections
		WHERE tenant_id = ? AND provider = ?
		ORDER BY resource_id
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, tenantID, string(provider))
	if err != nil {
		return nil, fmt.Errorf("list connections for tenant %q provider %q: %w", tenantID, provider, err)
	}
	defer rows.Close()

	conns := []model.Connection{}
	for rows.Next() {
		var (
			conn     model.Connection
			provider string
			addedAt  string
		)
		if err := rows.Scan(&conn.ID, &conn.TenantID, &provider, &conn.ResourceID, &conn.Label, &addedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conn.Provider = model.Provider(provider)
		if conn.AddedAt, err = parseTime(addedAt); err != nil {
			return nil, fmt.Errorf("parse added_at for connection %q: %w", conn.ResourceID, err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return conns, nil
}

// parseTime parses a timestamp string from SQLite, trying the formats SQLite
// and our own writes produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
