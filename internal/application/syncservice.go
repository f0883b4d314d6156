package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// syncRequest represents a manual sync trigger. An empty tenantID requests an
// all-tenant run.
type syncRequest struct {
	tenantID string
	done     chan syncResult
}

type syncResult struct {
	report model.SyncReport
	err    error
}

// SyncService orchestrates metric synchronization: for every tenant with a
// stored credential it obtains one fresh access token, enumerates the
// tenant's connections across all provider families, pulls the backfill
// window through the matching connector, and upserts the rows. Failures are
// isolated per tenant and per connection; a run's partial success is normal.
type SyncService struct {
	creds        driven.CredentialStore
	connections  driven.ConnectionStore
	metrics      driven.MetricStore
	tokens       *TokenService
	connectors   []driven.Connector
	backfillDays int
	workers      int
	interval     time.Duration
	syncCh       chan syncRequest
	now          func() time.Time
}

// NewSyncService creates a SyncService with all required dependencies.
// backfillDays is the trailing window re-pulled on every run; workers caps
// how many tenant pipelines run concurrently.
func NewSyncService(
	creds driven.CredentialStore,
	connections driven.ConnectionStore,
	metrics driven.MetricStore,
	tokens *TokenService,
	connectors []driven.Connector,
	backfillDays int,
	workers int,
	interval time.Duration,
) *SyncService {
	return &SyncService{
		creds:        creds,
		connections:  connections,
		metrics:      metrics,
		tokens:       tokens,
		connectors:   connectors,
		backfillDays: backfillDays,
		workers:      workers,
		interval:     interval,
		syncCh:       make(chan syncRequest),
		now:          time.Now,
	}
}

// Start begins the scheduled sync loop. It runs an immediate all-tenant sync,
// then syncs on the configured interval. It also serves manual trigger
// requests, so a manual run never interleaves with a scheduled one. Start
// blocks until the context is canceled.
func (s *SyncService) Start(ctx context.Context) {
	if _, err := s.RunSync(ctx, ""); err != nil {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if _, err := s.RunSync(ctx, ""); err != nil {
				slog.Error("scheduled sync failed", "error", err)
			}
		case req := <-s.syncCh:
			report, err := s.RunSync(ctx, req.tenantID)
			req.done <- syncResult{report: report, err: err}
		}
	}
}

// TriggerSync requests a sync through the service's loop and blocks until it
// completes or the context is canceled. An empty tenantID runs all tenants.
// Used by the HTTP trigger surface.
func (s *SyncService) TriggerSync(ctx context.Context, tenantID string) (model.SyncReport, error) {
	done := make(chan syncResult, 1)

	select {
	case s.syncCh <- syncRequest{tenantID: tenantID, done: done}:
	case <-ctx.Done():
		return model.SyncReport{}, ctx.Err()
	}

	select {
	case res := <-done:
		return res.report, res.err
	case <-ctx.Done():
		return model.SyncReport{}, ctx.Err()
	}
}

// RunSync performs one synchronization run. With a tenant filter it scopes to
// that tenant; otherwise it enumerates every stored credential. Tenant
// pipelines run concurrently, capped at the configured worker count to
// respect provider rate limits. The returned report is best-effort: failed
// tenants and connections are counted, never propagated.
func (s *SyncService) RunSync(ctx context.Context, tenantFilter string) (model.SyncReport, error) {
	start := s.now()
	runID := uuid.NewString()
	window := model.BackfillWindow(start, s.backfillDays)

	tenants, err := s.enumerateTenants(ctx, tenantFilter)
	if err != nil {
		return model.SyncReport{}, err
	}

	var (
		mu     sync.Mutex
		report model.SyncReport
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, tenantID := range tenants {
		g.Go(func() error {
			tr := s.syncTenant(ctx, tenantID, window, runID)
			mu.Lock()
			report.Merge(tr)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; isolation is per tenant.

	report.RunID = runID
	report.Duration = time.Since(start).Round(time.Millisecond)

	slog.Info("sync run complete",
		"run_id", runID,
		"window_start", window.Start,
		"window_end", window.End,
		"tenants", len(tenants),
		"synced", report.TenantsSynced,
		"skipped", report.TenantsSkipped,
		"failed", report.TenantsFailed,
		"connections_failed", report.ConnectionsFailed,
		"rows_changed", report.RowsChanged,
		"duration", report.Duration,
	)

	return report, nil
}

// enumerateTenants resolves the run's tenant set. A filtered run targets one
// tenant even if it has no credential yet (reported as skipped, not an error).
func (s *SyncService) enumerateTenants(ctx context.Context, tenantFilter string) ([]string, error) {
	if tenantFilter != "" {
		return []string{tenantFilter}, nil
	}

	creds, err := s.creds.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	tenants := make([]string, 0, len(creds))
	for _, cred := range creds {
		tenants = append(tenants, cred.TenantID)
	}
	return tenants, nil
}

// syncTenant runs one tenant's pipeline: a single token refresh reused across
// every connection, then per-connection fetch and upsert. A refresh failure
// skips the whole tenant; a connection failure skips that connection only; an
// upsert failure skips that row only.
func (s *SyncService) syncTenant(ctx context.Context, tenantID string, window model.DateRange, runID string) model.SyncReport {
	token, err := s.tokens.AccessToken(ctx, tenantID)
	if errors.Is(err, driven.ErrNoCredential) {
		slog.Warn("tenant has no credential, skipping", "run_id", runID, "tenant", tenantID)
		return model.SyncReport{TenantsSkipped: 1}
	}
	if err != nil {
		slog.Error("tenant refresh failed, skipping connections", "run_id", runID, "tenant", tenantID, "error", err)
		return model.SyncReport{TenantsFailed: 1}
	}

	var tr model.SyncReport
	for _, connector := range s.connectors {
		provider := connector.Provider()

		conns, err := s.connections.ListByTenant(ctx, tenantID, provider)
		if err != nil {
			slog.Error("list connections failed", "run_id", runID, "tenant", tenantID, "provider", provider, "error", err)
			tr.ConnectionsFailed++
			continue
		}

		for _, conn := range conns {
			if ctx.Err() != nil {
				return tr
			}

			rows, err := connector.FetchDailyMetrics(ctx, token, conn.ResourceID, window)
			if err != nil {
				slog.Error("connection fetch failed",
					"run_id", runID, "tenant", tenantID, "provider", provider,
					"resource", conn.ResourceID, "error", err)
				tr.ConnectionsFailed++
				continue
			}

			for _, row := range rows {
				row.TenantID = tenantID
				if err := s.metrics.Upsert(ctx, row); err != nil {
					slog.Error("metric upsert failed",
						"run_id", runID, "tenant", tenantID, "provider", provider,
						"resource", conn.ResourceID, "date", row.Date, "error", err)
					continue
				}
				tr.RowsChanged++
			}

			slog.Debug("connection synced",
				"run_id", runID, "tenant", tenantID, "provider", provider,
				"resource", conn.ResourceID, "rows", len(rows))
		}
	}

	tr.TenantsSynced = 1
	return tr
}
