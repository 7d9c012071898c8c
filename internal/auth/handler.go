package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateSession returns a token. A caller that already holds a valid token
// gets a fresh one for the same owner; everyone else gets a new owner.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if token := bearer(r.Header.Get("Authorization")); token != "" {
		ownerID, err := h.service.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		h.issue(w, ownerID, http.StatusOK)
		return
	}

	sess, err := h.service.NewOwner()
	if err != nil {
		slog.Error("create owner failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) issue(w http.ResponseWriter, ownerID string, status int) {
	sess, err := h.service.Issue(ownerID)
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, sess)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
