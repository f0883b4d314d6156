package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ewhitley/sitepulse/internal/adapter/driving/http"
	"github.com/ewhitley/sitepulse/internal/application"
	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
	"github.com/ewhitley/sitepulse/internal/vault"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	creds map[string]model.Credential
}

func (m *mockCredentialStore) Get(_ context.Context, tenantID string) (*model.Credential, error) {
	cred, ok := m.creds[tenantID]
	if !ok {
		return nil, driven.ErrNoCredential
	}
	return &cred, nil
}

func (m *mockCredentialStore) ListAll(_ context.Context) ([]model.Credential, error) {
	out := []model.Credential{}
	for _, cred := range m.creds {
		out = append(out, cred)
	}
	return out, nil
}

func (m *mockCredentialStore) Upsert(_ context.Context, cred model.Credential) error {
	m.creds[cred.TenantID] = cred
	return nil
}

func (m *mockCredentialStore) UpdateTokens(_ context.Context, tenantID string, access model.SealedToken, refresh *model.SealedToken, expiresAt time.Time) error {
	cred, ok := m.creds[tenantID]
	if !ok {
		return driven.ErrNoCredential
	}
	cred.AccessToken = access
	if refresh != nil {
		cred.RefreshToken = *refresh
	}
	cred.ExpiresAt = expiresAt
	m.creds[tenantID] = cred
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, tenantID string) error {
	delete(m.creds, tenantID)
	return nil
}

type mockConnectionStore struct {
	conns []model.Connection
	err   error
}

func (m *mockConnectionStore) Add(_ context.Context, _ model.Connection) error { return nil }
func (m *mockConnectionStore) Remove(_ context.Context, _ string, _ model.Provider, _ string) error {
	return nil
}
func (m *mockConnectionStore) ListByTenant(_ context.Context, tenantID string, provider model.Provider) ([]model.Connection, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []model.Connection{}
	for _, c := range m.conns {
		if c.TenantID == tenantID && c.Provider == provider {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockExchanger struct{}

func (m *mockExchanger) Exchange(_ context.Context, _ string) (model.TokenGrant, error) {
	return model.TokenGrant{AccessToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type mockMetricStore struct{}

func (m *mockMetricStore) Upsert(_ context.Context, _ model.DailyMetric) error { return nil }
func (m *mockMetricStore) ListByConnection(_ context.Context, _, _ string, _ model.DateRange) ([]model.DailyMetric, error) {
	return []model.DailyMetric{}, nil
}

// --- Test fixture ---

const testSecret = "sched-secret"

type fixture struct {
	handler http.Handler
	creds   *mockCredentialStore
	conns   *mockConnectionStore
}

// newFixture wires a real SyncService (with its trigger loop running) behind
// the HTTP handler, over mock stores.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := vault.New(bytes.Repeat([]byte{0x42}, vault.KeySize))
	require.NoError(t, err)

	creds := &mockCredentialStore{creds: map[string]model.Credential{}}
	conns := &mockConnectionStore{}
	tokens := application.NewTokenService(creds, &mockExchanger{}, v)
	syncSvc := application.NewSyncService(creds, conns, &mockMetricStore{}, tokens, nil, 28, 4, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go syncSvc.Start(ctx)
	t.Cleanup(cancel)

	logger := slog.Default()
	h := httphandler.NewHandler(syncSvc, conns, creds, testSecret, logger)

	return &fixture{
		handler: httphandler.NewServeMux(h, logger),
		creds:   creds,
		conns:   conns,
	}
}

func (f *fixture) do(method, path, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSyncAll_RequiresSecret(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/sync", "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncAll_ReturnsReport(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/sync", testSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	var report model.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
}

func TestSyncTenant_RequiresSecret(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/tenants/tenant-x/sync", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncTenant_SkipsUnknownTenant(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/tenants/tenant-x/sync", testSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	var report model.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TenantsSkipped)
}

func TestListConnections(t *testing.T) {
	f := newFixture(t)
	f.conns.conns = []model.Connection{
		{TenantID: "tenant-x", Provider: model.ProviderAnalytics, ResourceID: "prop-1", Label: "Main site"},
		{TenantID: "tenant-x", Provider: model.ProviderListings, ResourceID: "loc-1", Label: "HQ"},
		{TenantID: "tenant-y", Provider: model.ProviderAnalytics, ResourceID: "prop-2"},
	}

	rec := f.do(http.MethodGet, "/api/v1/tenants/tenant-x/connections", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []httphandler.ConnectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "prop-1", got[0].ResourceID)
	assert.Equal(t, "loc-1", got[1].ResourceID)
}

func TestCredentialStatus(t *testing.T) {
	f := newFixture(t)
	f.creds.creds["tenant-x"] = model.Credential{
		TenantID:  "tenant-x",
		ExpiresAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC),
	}

	rec := f.do(http.MethodGet, "/api/v1/tenants/tenant-x/credential", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got httphandler.CredentialStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Connected)
	assert.Equal(t, "2025-09-01T12:00:00Z", got.ExpiresAt)

	rec = f.do(http.MethodGet, "/api/v1/tenants/tenant-y/credential", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = httphandler.CredentialStatusResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Connected)
	assert.Empty(t, got.ExpiresAt)
}
