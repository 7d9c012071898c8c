package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
)

// maxImportBytes bounds an uploaded preset file.
const maxImportBytes = 8 << 20

// ErrNoSession is returned by a DocumentSource for an unknown session id.
var ErrNoSession = errors.New("session not found")

// DocumentSource hands out a snapshot of one of the owner's live session
// documents.
type DocumentSource interface {
	Document(ownerID, sessionID string) (*document.CommissionDocument, error)
}

type Handler struct {
	service  *Service
	sessions DocumentSource
}

func NewHandler(service *Service, sessions DocumentSource) *Handler {
	return &Handler{service: service, sessions: sessions}
}

type saveRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type saveResponse struct {
	Preset   Preset   `json:"preset"`
	Location Location `json:"location"`
}

type listResponse struct {
	Presets []Preset `json:"presets"`
	Source  Location `json:"source"`
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sessionId is required"})
		return
	}

	doc, err := h.sessions.Document(ownerID, req.SessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	p, loc, err := h.service.Save(r.Context(), ownerID, req.Name, doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse{Preset: p, Location: loc})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	presets, source, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Presets: presets, Source: source})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	id := mux.Vars(r)["presetId"]

	if err := h.service.Delete(r.Context(), ownerID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	id := mux.Vars(r)["presetId"]

	envelope, _ := strconv.ParseBool(r.URL.Query().Get("envelope"))

	data, filename, err := h.service.Export(r.Context(), ownerID, id, envelope)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import accepts the file either as the raw request body or as a multipart
// "file" field.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	data, err := readImport(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	p, loc, err := h.service.Import(r.Context(), ownerID, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse{Preset: p, Location: loc})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	pushed, err := h.service.Reconcile(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pushed": pushed})
}

func readImport(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if err := r.ParseMultipartForm(maxImportBytes); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("file is required")
		}
		defer file.Close()
		return io.ReadAll(file)
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, errors.New("file too large or malformed")
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("file too large")
	}
	return data, nil
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "preset not found"})
	case errors.Is(err, ErrNoSession):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, ErrInvalidFile):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrRemoteUnavailable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "remote preset store unavailable"})
	default:
		slog.Error("preset service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
