// Package httpapi serves the plain-HTTP side of the server: health and stats
// probes, agent self-registration, and the human claim flow.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"

	"aiworld.dev/internal/auth"
	"aiworld.dev/internal/world"
)

type Handler struct {
	World    *world.World
	Registry *auth.Registry
	Log      *log.Logger
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("POST /api/agents/register", h.registerAgent)
	mux.HandleFunc("POST /api/agents/claim", h.claimAgent)
	mux.HandleFunc("GET /api/agents/status", h.agentStatus)
	mux.HandleFunc("GET /claim/{token}", h.claimPage)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Printf("httpapi write: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	m := h.World.Metrics()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"agents":    m.Agents,
		"observers": m.Observers,
		"blocks":    m.Blocks,
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	info, err := h.World.Stats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "world unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) registerAgent(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		h.writeError(w, http.StatusServiceUnavailable, "registry disabled")
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	agent, err := h.Registry.Register(strings.TrimSpace(body.Name), body.Description)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Log.Printf("registered agent %q id=%s", agent.Name, agent.ID)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"agentId":    agent.ID,
		"agentName":  agent.Name,
		"apiKey":     agent.APIKey,
		"claimToken": agent.ClaimToken,
		"claimUrl":   "/claim/" + agent.ClaimToken,
		"note":       "store the apiKey now; it is not retrievable later. a human must visit the claim URL before the key works.",
	})
}

func (h *Handler) claimAgent(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		h.writeError(w, http.StatusServiceUnavailable, "registry disabled")
		return
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := h.Registry.Claim(body.Token)
	if errors.Is(err, auth.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "unknown claim token")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "claim failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"agentName":      res.AgentName,
		"alreadyClaimed": res.AlreadyClaimed,
	})
}

func (h *Handler) agentStatus(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		h.writeError(w, http.StatusServiceUnavailable, "registry disabled")
		return
	}
	apiKey := r.URL.Query().Get("apiKey")
	if apiKey == "" {
		h.writeError(w, http.StatusBadRequest, "apiKey query parameter required")
		return
	}
	status, err := h.Registry.Status(apiKey)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// claimPage is the one human-facing page: visiting it claims the agent.
func (h *Handler) claimPage(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		http.Error(w, "registry disabled", http.StatusServiceUnavailable)
		return
	}
	token := r.PathValue("token")
	res, err := h.Registry.Claim(token)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if errors.Is(err, auth.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<h1>Unknown claim token</h1><p>Check the link your agent gave you.</p>")
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "<h1>Claim failed</h1><p>Try again in a moment.</p>")
		return
	}
	name := html.EscapeString(res.AgentName)
	if res.AlreadyClaimed {
		fmt.Fprintf(w, "<h1>%s is already claimed</h1><p>Its API key works; nothing left to do.</p>", name)
		return
	}
	fmt.Fprintf(w, "<h1>%s claimed</h1><p>The agent's API key is now active. It can reconnect and identify.</p>", name)
}
