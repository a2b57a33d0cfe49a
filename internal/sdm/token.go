package sdm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTokenRefresh marks a failed refresh-token exchange. The failure is
// terminal for the invocation; nothing retries it.
var ErrTokenRefresh = errors.New("token refresh failed")

// TokenSource exchanges a refresh token for a short-lived access token.
// Tokens are never cached or persisted; each triggered invocation performs
// one exchange.
type TokenSource struct {
	TokenURL string
	Client   *http.Client
}

// NewTokenSource creates a TokenSource for the given OAuth token endpoint.
func NewTokenSource(tokenURL string) *TokenSource {
	return &TokenSource{
		TokenURL: tokenURL,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// tokenResponse is the subset of the token endpoint response we consume.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// Refresh performs the refresh_token grant and returns the access token.
func (ts *TokenSource) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (string, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return "", fmt.Errorf("%w: missing client credentials", ErrTokenRefresh)
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrTokenRefresh, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrTokenRefresh, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrTokenRefresh, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: response has no access_token", ErrTokenRefresh)
	}
	return tok.AccessToken, nil
}
