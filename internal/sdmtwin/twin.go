// Package sdmtwin simulates the three external services fancycle talks to:
// the secret store, the OAuth token endpoint, and the SDM device command
// API. It exists so the service can run end to end with no Google account,
// both locally and in tests.
package sdmtwin

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fancycle/fancycle/internal/store"
	"github.com/fancycle/fancycle/internal/webcore"
)

// Credentials is the one OAuth client the twin accepts.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CommandRecord is one executeCommand call the twin received.
type CommandRecord struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"`
	Params     map[string]any `json:"params"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Twin is the simulator. It holds seeded secrets, the registered OAuth
// client, and every command it has received.
type Twin struct {
	creds      Credentials
	secrets    *store.Store[string]
	commands   *store.Store[CommandRecord]
	signingKey []byte
	tokenTTL   time.Duration
}

// New creates a Twin that accepts the given OAuth client. The JWT signing
// key is generated fresh per instance.
func New(creds Credentials) *Twin {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("sdmtwin: generating signing key: %v", err))
	}
	return &Twin{
		creds:      creds,
		secrets:    store.New[string]("sec"),
		commands:   store.New[CommandRecord]("cmd"),
		signingKey: key,
		tokenTTL:   time.Hour,
	}
}

// SeedSecret registers a secret under its store name.
func (tw *Twin) SeedSecret(name, value string) {
	tw.secrets.Set(name, value)
}

// Commands returns every executeCommand call received, in order.
func (tw *Twin) Commands() []CommandRecord {
	return tw.commands.List()
}

// Reset clears recorded commands. Seeded secrets are kept.
func (tw *Twin) Reset() {
	tw.commands.Reset()
}

// Routes mounts the simulated endpoints plus the twin inspection routes.
func (tw *Twin) Routes(r chi.Router) {
	r.Post("/token", tw.IssueToken)
	r.Post("/v1/enterprises/{projectID}/devices/{deviceID}:executeCommand", tw.ExecuteCommand)
	r.Get("/v1/projects/{project}/secrets/{name}/versions/latest:access", tw.AccessSecret)

	r.Get("/twin/commands", tw.ListCommands)
	r.Post("/twin/reset", tw.HandleReset)
}

// IssueToken handles POST /token: the refresh_token grant.
func (tw *Twin) IssueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if g := r.PostFormValue("grant_type"); g != "refresh_token" {
		oauthError(w, http.StatusBadRequest, "unsupported_grant_type", fmt.Sprintf("grant_type %q is not supported", g))
		return
	}
	if r.PostFormValue("client_id") != tw.creds.ClientID ||
		r.PostFormValue("client_secret") != tw.creds.ClientSecret {
		oauthError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
		return
	}
	if r.PostFormValue("refresh_token") != tw.creds.RefreshToken {
		oauthError(w, http.StatusBadRequest, "invalid_grant", "refresh token is not valid")
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "https://sdm.twin.local",
		"sub": tw.creds.ClientID,
		"iat": now.Unix(),
		"exp": now.Add(tw.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tw.signingKey)
	if err != nil {
		oauthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	webcore.JSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_in":   int(tw.tokenTTL.Seconds()),
		"token_type":   "Bearer",
	})
}

// ExecuteCommand handles the SDM executeCommand call: verify the bearer
// token, record the command, return an empty result object.
func (tw *Twin) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	if !tw.authorized(r) {
		webcore.Error(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
		return
	}

	var body struct {
		Command string         `json:"command"`
		Params  map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		webcore.Error(w, http.StatusBadRequest, "Invalid JSON payload received.")
		return
	}
	if body.Command == "" {
		webcore.Error(w, http.StatusBadRequest, "Command is required.")
		return
	}

	rec := CommandRecord{
		ID:         tw.commands.NextID(),
		ProjectID:  chi.URLParam(r, "projectID"),
		DeviceID:   chi.URLParam(r, "deviceID"),
		Command:    body.Command,
		Params:     body.Params,
		ReceivedAt: time.Now(),
	}
	tw.commands.Set(rec.ID, rec)

	webcore.JSON(w, http.StatusOK, map[string]any{"results": map[string]any{}})
}

// AccessSecret handles the latest-version secret access call.
func (tw *Twin) AccessSecret(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	name := chi.URLParam(r, "name")

	value, ok := tw.secrets.Get(name)
	if !ok {
		webcore.Error(w, http.StatusNotFound, fmt.Sprintf("Secret [projects/%s/secrets/%s] not found.", project, name))
		return
	}

	webcore.JSON(w, http.StatusOK, map[string]any{
		"name": fmt.Sprintf("projects/%s/secrets/%s/versions/1", project, name),
		"payload": map[string]any{
			"data": base64.StdEncoding.EncodeToString([]byte(value)),
		},
	})
}

// ListCommands handles GET /twin/commands.
func (tw *Twin) ListCommands(w http.ResponseWriter, r *http.Request) {
	webcore.JSON(w, http.StatusOK, map[string]any{"commands": tw.Commands()})
}

// HandleReset handles POST /twin/reset.
func (tw *Twin) HandleReset(w http.ResponseWriter, r *http.Request) {
	tw.Reset()
	webcore.JSON(w, http.StatusOK, map[string]any{"reset": true})
}

// authorized checks the bearer token against the twin's signing key.
func (tw *Twin) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	raw := strings.TrimPrefix(auth, "Bearer ")
	if raw == auth || raw == "" {
		return false
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tw.signingKey, nil
	})
	return err == nil
}

// oauthError writes an RFC 6749 style error response.
func oauthError(w http.ResponseWriter, status int, code, description string) {
	webcore.JSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
