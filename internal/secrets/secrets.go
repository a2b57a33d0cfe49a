// Package secrets resolves named secrets from a secret store. The store is
// an external collaborator; this package defines the lookup interface and
// the two providers the service ships with.
package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable marks a secret that could not be resolved, whether the
// store has no such secret or the lookup itself failed.
var ErrUnavailable = errors.New("secret unavailable")

// Provider resolves a secret by name. Implementations must be safe for
// concurrent use; the handler resolves four secrets per triggered
// invocation with no caching beyond the invocation itself.
type Provider interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Static is a map-backed Provider for inline config values and tests.
type Static map[string]string

// Resolve implements Provider.
func (s Static) Resolve(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, name)
	}
	return v, nil
}

// Client resolves secrets over HTTP using the Secret Manager REST shape:
// GET {base}/v1/projects/{project}/secrets/{name}/versions/latest:access
// returning {"payload":{"data":"<base64>"}}.
type Client struct {
	BaseURL   string
	Project   string
	AuthToken string // optional bearer token for the store
	Client    *http.Client
}

// NewClient creates an HTTP secret store client.
func NewClient(baseURL, project, authToken string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Project:   project,
		AuthToken: authToken,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// accessResponse is the latest-version access response body.
type accessResponse struct {
	Name    string `json:"name"`
	Payload struct {
		Data string `json:"data"`
	} `json:"payload"`
}

// Resolve implements Provider by fetching the latest version of the named
// secret.
func (c *Client) Resolve(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/projects/%s/secrets/%s/versions/latest:access", c.BaseURL, c.Project, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: reading response: %v", ErrUnavailable, name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: status %d", ErrUnavailable, name, resp.StatusCode)
	}

	var access accessResponse
	if err := json.Unmarshal(body, &access); err != nil {
		return "", fmt.Errorf("%w: %s: decoding response: %v", ErrUnavailable, name, err)
	}
	if access.Payload.Data == "" {
		return "", fmt.Errorf("%w: %s: empty payload", ErrUnavailable, name)
	}
	raw, err := base64.StdEncoding.DecodeString(access.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: decoding payload: %v", ErrUnavailable, name, err)
	}
	return string(raw), nil
}
