package application_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
	"github.com/ewhitley/sitepulse/internal/vault"
)

// --- Test vault and credential helpers ---

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{0x42}, vault.KeySize))
	require.NoError(t, err)
	return v
}

// sealedCredential builds a credential whose tokens are sealed by v.
func sealedCredential(t *testing.T, v *vault.Vault, tenantID, access, refresh string, expiresAt time.Time) model.Credential {
	t.Helper()

	sealedAccess, err := v.Seal(access)
	require.NoError(t, err)
	sealedRefresh, err := v.Seal(refresh)
	require.NoError(t, err)

	return model.Credential{
		TenantID:     tenantID,
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    expiresAt,
		UpdatedAt:    time.Now().Add(-time.Hour),
	}
}

// --- Mock implementations ---

type mockCredentialStore struct {
	mu    sync.Mutex
	creds map[string]model.Credential

	updateCalls int
}

func newMockCredentialStore(creds ...model.Credential) *mockCredentialStore {
	m := &mockCredentialStore{creds: make(map[string]model.Credential)}
	for _, c := range creds {
		m.creds[c.TenantID] = c
	}
	return m
}

func (m *mockCredentialStore) Get(_ context.Context, tenantID string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[tenantID]
	if !ok {
		return nil, driven.ErrNoCredential
	}
	return &cred, nil
}

func (m *mockCredentialStore) ListAll(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Stable order keeps assertions deterministic.
	var out []model.Credential
	for _, id := range sortedKeys(m.creds) {
		out = append(out, m.creds[id])
	}
	return out, nil
}

func (m *mockCredentialStore) Upsert(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.TenantID] = cred
	return nil
}

func (m *mockCredentialStore) UpdateTokens(_ context.Context, tenantID string, access model.SealedToken, refresh *model.SealedToken, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	cred, ok := m.creds[tenantID]
	if !ok {
		return driven.ErrNoCredential
	}
	cred.AccessToken = access
	if refresh != nil {
		cred.RefreshToken = *refresh
	}
	cred.ExpiresAt = expiresAt
	cred.UpdatedAt = time.Now()
	m.creds[tenantID] = cred
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, tenantID)
	return nil
}

func sortedKeys(m map[string]model.Credential) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}

type mockExchanger struct {
	mu       sync.Mutex
	calls    int
	exchange func(refreshToken string) (model.TokenGrant, error)
}

func (m *mockExchanger) Exchange(_ context.Context, refreshToken string) (model.TokenGrant, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.exchange(refreshToken)
}

func (m *mockExchanger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockConnectionStore struct {
	mu    sync.Mutex
	conns []model.Connection
}

func (m *mockConnectionStore) Add(_ context.Context, conn model.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns = append(m.conns, conn)
	return nil
}

func (m *mockConnectionStore) Remove(_ context.Context, _ string, _ model.Provider, _ string) error {
	return nil
}

func (m *mockConnectionStore) ListByTenant(_ context.Context, tenantID string, provider model.Provider) ([]model.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Connection{}
	for _, c := range m.conns {
		if c.TenantID == tenantID && c.Provider == provider {
			out = append(out, c)
		}
	}
	return out, nil
}

// metricKey is the natural key the real store upserts on.
type metricKey struct {
	TenantID     string
	ConnectionID string
	Date         string
	Provider     model.Provider
}

// mockMetricStore stores rows keyed like the real store, so upsert idempotence
// is observable in tests.
type mockMetricStore struct {
	mu   sync.Mutex
	rows map[metricKey]model.DailyMetric

	upsertErr func(row model.DailyMetric) error
}

func newMockMetricStore() *mockMetricStore {
	return &mockMetricStore{rows: make(map[metricKey]model.DailyMetric)}
}

func (m *mockMetricStore) Upsert(_ context.Context, row model.DailyMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		if err := m.upsertErr(row); err != nil {
			return err
		}
	}
	m.rows[metricKey{row.TenantID, row.ConnectionID, row.Date, row.Provider}] = row
	return nil
}

func (m *mockMetricStore) ListByConnection(_ context.Context, tenantID, connectionID string, r model.DateRange) ([]model.DailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.DailyMetric{}
	for k, row := range m.rows {
		if k.TenantID == tenantID && k.ConnectionID == connectionID && k.Date >= r.Start && k.Date <= r.End {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockMetricStore) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *mockMetricStore) row(k metricKey) (model.DailyMetric, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[k]
	return row, ok
}

// mockConnector returns canned rows per resource, or an error for resources
// listed in failures.
type mockConnector struct {
	provider model.Provider
	rows     map[string][]model.DailyMetric
	failures map[string]error

	mu     sync.Mutex
	ranges []model.DateRange
	tokens []string
}

func (m *mockConnector) Provider() model.Provider {
	return m.provider
}

func (m *mockConnector) FetchDailyMetrics(_ context.Context, accessToken, resourceID string, r model.DateRange) ([]model.DailyMetric, error) {
	m.mu.Lock()
	m.ranges = append(m.ranges, r)
	m.tokens = append(m.tokens, accessToken)
	m.mu.Unlock()

	if err, ok := m.failures[resourceID]; ok {
		return nil, err
	}
	rows, ok := m.rows[resourceID]
	if !ok {
		return []model.DailyMetric{}, nil
	}
	return rows, nil
}

// metricRow is shorthand for a connector-shaped row (no tenant stamped yet).
func metricRow(provider model.Provider, resourceID, date string, sessions int64) model.DailyMetric {
	return model.DailyMetric{
		ConnectionID: resourceID,
		Provider:     provider,
		Date:         date,
		Sessions:     sessions,
	}
}

// failingExchanger fails only for the given refresh token.
func failingExchanger(t *testing.T, badRefreshToken string, grant model.TokenGrant) *mockExchanger {
	t.Helper()
	return &mockExchanger{
		exchange: func(refreshToken string) (model.TokenGrant, error) {
			if refreshToken == badRefreshToken {
				return model.TokenGrant{}, &driven.ExchangeError{StatusCode: 400, Body: `{"error":"invalid_grant"}`}
			}
			return grant, nil
		},
	}
}
