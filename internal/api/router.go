package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fancycle/fancycle/internal/webcore"
)

// Routes mounts the push endpoint and health check. Pub/Sub push
// subscriptions post to the service root; /push is an alias for setups
// that route by path.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandlePush)
	r.Post("/push", h.HandlePush)
	r.Get("/healthz", h.Health)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	webcore.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
