package driven

import (
	"context"
	"fmt"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// TokenExchanger defines the driven port for the OAuth refresh-token grant:
// one refresh token in, one new access token (and possibly a rotated refresh
// token) out. One network attempt per call; the caller decides whether a
// failure is fatal.
type TokenExchanger interface {
	Exchange(ctx context.Context, refreshToken string) (model.TokenGrant, error)
}

// ExchangeError is returned when the provider's token endpoint rejected the
// refresh (revoked token, bad client, non-2xx). StatusCode is zero when the
// call never produced a response (timeout, connection failure).
type ExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange rejected with status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}
