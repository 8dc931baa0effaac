package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sre-tools/kube-action-gateway/internal/agent"
	"github.com/sre-tools/kube-action-gateway/internal/credentials"
)

// POST /invoke
// Body: an agent action event; the reply is always the versioned response
// wrapper. Per-cluster failures ride a 200 envelope; only a malformed
// event produces the 500 frame.
func (api *APIServer) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event agent.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		api.log.Errorf("Malformed event: %v", err)
		api.respondJSON(w, agent.NewErrorResponse(event, fmt.Errorf("malformed event: %w", err)))
		return
	}

	api.log.WithField("api_path", event.APIPath).Infof("Received action from group %q", event.ActionGroup)

	envelope := api.router.Route(r.Context(), event.APIPath, event.Parameters())
	api.respondJSON(w, agent.NewResponse(event, envelope))
}

// GET /health
func (api *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	}

	if pgStore, ok := api.store.(*credentials.PostgresStore); ok {
		if err := pgStore.Ping(); err != nil {
			health["status"] = "unhealthy"
			health["credential_store"] = "disconnected"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			health["credential_store"] = "connected"
		}
	}

	api.respondJSON(w, health)
}

// GET /ready
func (api *APIServer) handleReady(w http.ResponseWriter, r *http.Request) {
	api.respondJSON(w, map[string]interface{}{
		"ready": true,
	})
}

func (api *APIServer) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
