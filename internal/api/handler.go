// Package api implements the push notification handler: decode the
// envelope, classify the event, and on a cycle-end trigger run the
// credential, token, and command flow.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fancycle/fancycle/internal/config"
	"github.com/fancycle/fancycle/internal/pubsub"
	"github.com/fancycle/fancycle/internal/sdm"
	"github.com/fancycle/fancycle/internal/secrets"
	"github.com/fancycle/fancycle/internal/webcore"
)

// OutcomeHeader carries the no-op outcome on 204 responses, which cannot
// have a body. Values: "event ignored" or "condition not met".
const OutcomeHeader = "X-Fancycle-Outcome"

// Handler wires the linear pipeline together. All fields are fixed at
// startup; each request gets its own local state only.
type Handler struct {
	cfg      config.Config
	secrets  secrets.Provider
	tokens   *sdm.TokenSource
	commands *sdm.CommandClient
	logger   *slog.Logger
}

// NewHandler creates a Handler with its collaborators injected.
func NewHandler(cfg config.Config, provider secrets.Provider, tokens *sdm.TokenSource, commands *sdm.CommandClient, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		secrets:  provider,
		tokens:   tokens,
		commands: commands,
		logger:   logger,
	}
}

// HandlePush processes one push notification end to end.
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("reading request body", "err", err)
		webcore.Text(w, http.StatusBadRequest, "Bad Request: No JSON payload")
		return
	}

	dec, err := pubsub.DecodeBody(body)
	if err != nil {
		h.logger.Warn("rejecting envelope", "err", err)
		webcore.Text(w, http.StatusBadRequest, envelopeMessage(err))
		return
	}
	if !dec.Base64 {
		h.logger.Debug("data field is not base64, using literal text", "message_id", dec.MessageID)
	}

	ev, err := sdm.ParseEvent(dec.Text)
	if err != nil {
		h.logger.Warn("undecodable event payload", "err", err, "raw", dec.Text)
		webcore.Text(w, http.StatusBadRequest, "Bad Request: Invalid JSON")
		return
	}

	decision, status := sdm.Classify(ev)
	switch decision {
	case sdm.DecisionIgnore:
		h.logger.Info("event ignored", "event_id", ev.EventID)
		w.Header().Set(OutcomeHeader, "event ignored")
		w.WriteHeader(http.StatusNoContent)
		return
	case sdm.DecisionSkip:
		h.logger.Info("condition not met", "event_id", ev.EventID, "hvac_status", status)
		w.Header().Set(OutcomeHeader, "condition not met")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Info("hvac cycle ended", "event_id", ev.EventID)
	if err := h.activateFan(r.Context()); err != nil {
		h.logger.Error("fan activation failed", "event_id", ev.EventID, "err", err)
		webcore.Text(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.logger.Info("fan activated", "event_id", ev.EventID, "duration", h.cfg.FanDuration)
	webcore.Text(w, http.StatusOK, fmt.Sprintf("OK: Fan activated for %s after cycle", h.cfg.FanDuration))
}

// activateFan runs the credential, token refresh, and command dispatch
// sequence. Any failure aborts immediately; there are no retries and no
// partial completion to clean up.
func (h *Handler) activateFan(ctx context.Context) error {
	names := h.cfg.Secrets.Names

	clientID, err := h.secrets.Resolve(ctx, names.ClientID)
	if err != nil {
		return err
	}
	clientSecret, err := h.secrets.Resolve(ctx, names.ClientSecret)
	if err != nil {
		return err
	}
	refreshToken, err := h.secrets.Resolve(ctx, names.RefreshToken)
	if err != nil {
		return err
	}
	projectID, err := h.secrets.Resolve(ctx, names.ProjectID)
	if err != nil {
		return err
	}

	accessToken, err := h.tokens.Refresh(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		return err
	}

	return h.commands.SetFanTimer(ctx, accessToken, projectID, h.cfg.FanDuration)
}

// envelopeMessage maps envelope decode failures to their response texts.
func envelopeMessage(err error) string {
	switch {
	case errors.Is(err, pubsub.ErrMissingMessage):
		return "Bad Request: No message field"
	case errors.Is(err, pubsub.ErrMissingData):
		return "Bad Request: No data field"
	default:
		return "Bad Request: No JSON payload"
	}
}
