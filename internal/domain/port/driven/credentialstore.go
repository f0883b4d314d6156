package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// ErrNoCredential is returned when a tenant has no stored grant. Callers use
// it to distinguish "never authorized" (prompt for onboarding) from
// "authorized but failing" (prompt for re-authorization).
var ErrNoCredential = errors.New("no credential on file")

// CredentialStore defines the driven port for sealed credential persistence.
// Token values cross this boundary sealed; decryption is the vault's job, not
// the store's. ListAll is the narrowly-scoped admin surface consumed only by
// the sync orchestrator -- tenant-facing code must use Get.
type CredentialStore interface {
	// Get returns the credential for the given tenant, or ErrNoCredential.
	Get(ctx context.Context, tenantID string) (*model.Credential, error)

	// ListAll returns every stored credential, ordered by tenant.
	ListAll(ctx context.Context) ([]model.Credential, error)

	// Upsert stores or replaces the full credential for cred.TenantID.
	Upsert(ctx context.Context, cred model.Credential) error

	// UpdateTokens rotates the sealed access token and expiry in a single
	// write. refresh is nil unless the provider also rotated the refresh
	// token, in which case both sealed pairs are replaced atomically.
	UpdateTokens(ctx context.Context, tenantID string, access model.SealedToken, refresh *model.SealedToken, expiresAt time.Time) error

	// Delete removes the tenant's credential. Deleting a missing credential
	// is not an error.
	Delete(ctx context.Context, tenantID string) error
}
