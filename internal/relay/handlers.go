package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bunny-chase/internal/protocol"
)

type routerHandlers struct {
	hub         *Hub
	rateLimiter *IPRateLimiter
}

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.hub.Create()
	if err != nil {
		if errors.Is(err, ErrRoomLimit) {
			writeError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeError(w, "could not create room", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/api/rooms/"+rm.Code)
	writeJSONStatus(w, http.StatusCreated, rm.Status())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := NormalizeCode(chi.URLParam(r, "code"))
	if !ValidCode(code) {
		writeError(w, "invalid room code", http.StatusBadRequest)
		return
	}
	rm, err := h.hub.Lookup(code)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, rm.Status())
}

func (h *routerHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.hub.Stats()
	stats["rateLimiter"] = h.rateLimiter.Stats()
	writeJSON(w, stats)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"rooms":       h.hub.RoomCount(),
		"connections": h.hub.ConnectionCount(),
	})
}

// handleWS seats a peer: /ws?room=CODE&role=bunny|bobcat
func (h *routerHandlers) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := NormalizeCode(q.Get("room"))
	if !ValidCode(code) {
		writeError(w, "invalid room code", http.StatusBadRequest)
		return
	}
	role, ok := protocol.ParseRole(q.Get("role"))
	if !ok {
		writeError(w, "role must be bunny or bobcat", http.StatusBadRequest)
		return
	}
	h.hub.Join(w, r, code, role)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
