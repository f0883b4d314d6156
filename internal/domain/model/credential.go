package model

import "time"

// SealedToken is an encrypted token value at rest. Ciphertext, Nonce, and Tag
// are each standard base64. The three fields are only ever written together:
// the nonce is single-use per encryption, so rotating the ciphertext without
// rotating the nonce (or vice versa) would corrupt the record.
type SealedToken struct {
	Ciphertext string
	Nonce      string
	Tag        string
}

// Credential holds a tenant's OAuth grant at rest. One record per tenant; all
// three provider families share the same account-level grant. The access and
// refresh tokens are stored sealed and are never held in plaintext outside a
// single refresh or fetch call.
type Credential struct {
	TenantID     string
	AccessToken  SealedToken
	RefreshToken SealedToken
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// TokenGrant is the result of a refresh-token exchange: a new plaintext access
// token and its absolute expiry. RefreshToken is non-empty only when the
// provider rotated the refresh token as part of the exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
