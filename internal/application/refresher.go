// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
	"github.com/ewhitley/sitepulse/internal/vault"
)

// refreshSkew is how long before the stored expiry a token is already treated
// as stale, so a token never expires mid-request.
const refreshSkew = 60 * time.Second

// RefreshError is returned when the provider rejected or failed the
// refresh-token exchange. Fatal for the tenant's current run only; the next
// scheduled run retries naturally. It wraps the underlying
// *driven.ExchangeError.
type RefreshError struct {
	TenantID string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for tenant %q: %v", e.TenantID, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// TokenService hands out fresh access tokens for tenants, refreshing and
// re-sealing the stored credential when it is stale. It is the single refresh
// path: every caller that needs a token goes through AccessToken, both the
// sync orchestrator and on-demand callers.
type TokenService struct {
	creds     driven.CredentialStore
	exchanger driven.TokenExchanger
	vault     *vault.Vault
	now       func() time.Time
}

// NewTokenService creates a TokenService over the given stores.
func NewTokenService(creds driven.CredentialStore, exchanger driven.TokenExchanger, v *vault.Vault) *TokenService {
	return &TokenService{
		creds:     creds,
		exchanger: exchanger,
		vault:     v,
		now:       time.Now,
	}
}

// AccessToken returns a plaintext access token for the tenant, valid for at
// least refreshSkew from now. A still-fresh stored token is returned without
// any network call; a stale one triggers exactly one refresh-token exchange,
// after which the new sealed token and expiry are persisted in a single
// credential update.
//
// Errors: driven.ErrNoCredential when the tenant never authorized;
// vault.ErrAuthentication (fatal, operator must force re-authorization) when
// the stored ciphertext does not verify; *RefreshError when the exchange
// failed.
func (s *TokenService) AccessToken(ctx context.Context, tenantID string) (string, error) {
	cred, err := s.creds.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}

	if s.fresh(cred) {
		token, err := s.vault.Open(cred.AccessToken)
		if err != nil {
			return "", fmt.Errorf("open access token for tenant %q: %w", tenantID, err)
		}
		return token, nil
	}

	refreshToken, err := s.vault.Open(cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("open refresh token for tenant %q: %w", tenantID, err)
	}

	grant, err := s.exchanger.Exchange(ctx, refreshToken)
	if err != nil {
		// A concurrent run may have rotated the refresh token between our
		// read and the exchange. Re-read once and use the rotated credential
		// if it is now fresh; anything else is fatal for this run.
		if recovered, ok := s.recheck(ctx, cred); ok {
			return recovered, nil
		}
		return "", &RefreshError{TenantID: tenantID, Err: err}
	}

	sealedAccess, err := s.vault.Seal(grant.AccessToken)
	if err != nil {
		return "", fmt.Errorf("seal access token for tenant %q: %w", tenantID, err)
	}

	var sealedRefresh *model.SealedToken
	if grant.RefreshToken != "" {
		sr, err := s.vault.Seal(grant.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("seal refresh token for tenant %q: %w", tenantID, err)
		}
		sealedRefresh = &sr
	}

	if err := s.creds.UpdateTokens(ctx, tenantID, sealedAccess, sealedRefresh, grant.ExpiresAt); err != nil {
		return "", fmt.Errorf("persist refreshed tokens for tenant %q: %w", tenantID, err)
	}

	slog.Info("access token refreshed",
		"tenant", tenantID,
		"expires_at", grant.ExpiresAt.UTC().Format(time.RFC3339),
		"refresh_token_rotated", sealedRefresh != nil,
	)

	return grant.AccessToken, nil
}

// fresh reports whether the stored token is still valid past the skew window.
func (s *TokenService) fresh(cred *model.Credential) bool {
	return s.now().Before(cred.ExpiresAt.Add(-refreshSkew))
}

// recheck re-reads the credential after a failed exchange and returns the
// stored access token if a concurrent refresh already rotated it. One read,
// no retry loop.
func (s *TokenService) recheck(ctx context.Context, old *model.Credential) (string, bool) {
	cred, err := s.creds.Get(ctx, old.TenantID)
	if err != nil || !cred.UpdatedAt.After(old.UpdatedAt) || !s.fresh(cred) {
		return "", false
	}

	token, err := s.vault.Open(cred.AccessToken)
	if err != nil {
		return "", false
	}

	slog.Info("concurrent refresh detected, reusing rotated token", "tenant", old.TenantID)
	return token, true
}
