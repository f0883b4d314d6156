package model

import "time"

// SyncReport summarizes one orchestrator run. Partial success is the normal
// outcome: a tenant whose refresh failed or a connection whose fetch failed is
// counted here and revisited on the next run, never retried within the run.
type SyncReport struct {
	RunID             string        `json:"run_id"`
	RowsChanged       int           `json:"rows_changed"`
	TenantsSynced     int           `json:"tenants_synced"`
	TenantsSkipped    int           `json:"tenants_skipped"` // No credential on file.
	TenantsFailed     int           `json:"tenants_failed"`  // Refresh failed; all connections skipped.
	ConnectionsFailed int           `json:"connections_failed"`
	Duration          time.Duration `json:"duration"`
}

// Merge folds the per-tenant counts of other into r. The orchestrator runs
// tenant pipelines concurrently and merges their reports under a lock.
func (r *SyncReport) Merge(other SyncReport) {
	r.RowsChanged += other.RowsChanged
	r.TenantsSynced += other.TenantsSynced
	r.TenantsSkipped += other.TenantsSkipped
	r.TenantsFailed += other.TenantsFailed
	r.ConnectionsFailed += other.ConnectionsFailed
}
