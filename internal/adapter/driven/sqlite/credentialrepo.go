package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Token values arrive and leave sealed; this repo never sees plaintext.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Get returns the credential for the given tenant, or driven.ErrNoCredential.
func (r *CredentialRepo) Get(ctx context.Context, tenantID string) (*model.Credential, error) {
	const query = `
		SELECT tenant_id, access_ciphertext, access_nonce, access_tag,
		       refresh_ciphertext, refresh_nonce, refresh_tag, expires_at, updated_at
		FROM credentials WHERE tenant_id = ?
	`
	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("get credential for tenant %q: %w", tenantID, err)
	}
	return cred, nil
}

// ListAll returns every stored credential, ordered by tenant.
func (r *CredentialRepo) ListAll(ctx context.Context) ([]model.Credential, error) {
	const query = `
		SELECT tenant_id, access_ciphertext, access_nonce, access_tag,
		       refresh_ciphertext, refresh_nonce, refresh_tag, expires_at, updated_at
		FROM credentials ORDER BY tenant_id
	`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	if creds == nil {
		creds = []model.Credential{}
	}
	return creds, nil
}

// Upsert stores or replaces the full credential for cred.TenantID.
func (r *CredentialRepo) Upsert(ctx context.Context, cred model.Credential) error {
	const query = `
		INSERT INTO credentials (
			tenant_id, access_ciphertext, access_nonce, access_tag,
			refresh_ciphertext, refresh_nonce, refresh_tag, expires_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id) DO UPDATE SET
			access_ciphertext = excluded.access_ciphertext,
			access_nonce = excluded.access_nonce,
			access_tag = excluded.access_tag,
			refresh_ciphertext = excluded.refresh_ciphertext,
			refresh_nonce = excluded.refresh_nonce,
			refresh_tag = excluded.refresh_tag,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.Writer.ExecContext(ctx, query,
		cred.TenantID,
		cred.AccessToken.Ciphertext, cred.AccessToken.Nonce, cred.AccessToken.Tag,
		cred.RefreshToken.Ciphertext, cred.RefreshToken.Nonce, cred.RefreshToken.Tag,
		cred.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert credential for tenant %q: %w", cred.TenantID, err)
	}
	return nil
}

// UpdateTokens rotates the sealed access token and expiry in one UPDATE.
// When refresh is non-nil the provider rotated the refresh token too and both
// sealed pairs are replaced in the same statement.
func (r *CredentialRepo) UpdateTokens(ctx context.Context, tenantID string, access model.SealedToken, refresh *model.SealedToken, expiresAt time.Time) error {
	var (
		res sql.Result
		err error
	)

	if refresh != nil {
		const query = `
			UPDATE credentials SET
				access_ciphertext = ?, access_nonce = ?, access_tag = ?,
				refresh_ciphertext = ?, refresh_nonce = ?, refresh_tag = ?,
				expires_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE tenant_id = ?
		`
		res, err = r.db.Writer.ExecContext(ctx, query,
			access.Ciphertext, access.Nonce, access.Tag,
			refresh.Ciphertext, refresh.Nonce, refresh.Tag,
			expiresAt.UTC().Format(time.RFC3339), tenantID,
		)
	} else {
		const query = `
			UPDATE credentials SET
				access_ciphertext = ?, access_nonce = ?, access_tag = ?,
				expires_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE tenant_id = ?
		`
		res, err = r.db.Writer.ExecContext(ctx, query,
			access.Ciphertext, access.Nonce, access.Tag,
			expiresAt.UTC().Format(time.RFC3339), tenantID,
		)
	}
	if err != nil {
		return fmt.Errorf("update tokens for tenant %q: %w", tenantID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tokens for tenant %q: rows affected: %w", tenantID, err)
	}
	if affected == 0 {
		return driven.ErrNoCredential
	}
	return nil
}

// Delete removes the tenant's credential. Deleting a missing credential is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, tenantID string) error {
	const query = `DELETE FROM credentials WHERE tenant_id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, tenantID); err != nil {
		return fmt.Errorf("delete credential for tenant %q: %w", tenantID, err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	var (
		cred      model.Credential
		expiresAt string
		updatedAt string
	)
	err := row.Scan(
		&cred.TenantID,
		&cred.AccessToken.Ciphertext, &cred.AccessToken.Nonce, &cred.AccessToken.Tag,
		&cred.RefreshToken.Ciphertext, &cred.RefreshToken.Nonce, &cred.RefreshToken.Tag,
		&expiresAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cred.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &cred, nil
}
