// Package oauth implements the TokenExchanger port against a standard OAuth2
// token endpoint using the refresh_token grant.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// defaultTimeout bounds one exchange call end to end. A timed-out exchange is
// reported the same way as a rejected one.
const defaultTimeout = 15 * time.Second

// Compile-time interface satisfaction check.
var _ driven.TokenExchanger = (*Exchanger)(nil)

// Exchanger implements driven.TokenExchanger on golang.org/x/oauth2. It holds
// the process-wide OAuth client configuration; the per-tenant refresh token is
// supplied on each call.
type Exchanger struct {
	cfg     *oauth2.Config
	client  *http.Client
	timeout time.Duration
}

// NewExchanger creates an Exchanger for the given client credentials and
// token endpoint URL.
func NewExchanger(clientID, clientSecret, tokenURL string) *Exchanger {
	return &Exchanger{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		client:  &http.Client{Timeout: defaultTimeout},
		timeout: defaultTimeout,
	}
}

// NewExchangerWithHTTPClient creates an Exchanger using a custom http.Client.
// Intended for tests injecting an httptest server's client.
func NewExchangerWithHTTPClient(clientID, clientSecret, tokenURL string, httpClient *http.Client) *Exchanger {
	e := NewExchanger(clientID, clientSecret, tokenURL)
	e.client = httpClient
	return e
}

// Exchange performs one refresh_token grant. The returned grant's
// RefreshToken is non-empty only when the provider rotated it. A non-2xx
// response or transport failure yields a *driven.ExchangeError; there is no
// retry at this layer.
func (e *Exchanger) Exchange(ctx context.Context, refreshToken string) (model.TokenGrant, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)

	// A token with only RefreshToken set is always treated as expired by the
	// token source, forcing a real exchange on every call.
	src := e.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return model.TokenGrant{}, &driven.ExchangeError{
				StatusCode: re.Response.StatusCode,
				Body:       string(re.Body),
				Err:        err,
			}
		}
		return model.TokenGrant{}, &driven.ExchangeError{Err: err}
	}

	grant := model.TokenGrant{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		grant.RefreshToken = tok.RefreshToken
	}
	return grant, nil
}
