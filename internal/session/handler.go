package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/gesture"
	"github.com/dohnagen/sheetgen/internal/ingest"
	"github.com/dohnagen/sheetgen/internal/preset"
	"github.com/dohnagen/sheetgen/internal/store"
)

// PresetLoader resolves a saved preset into a document ready to replace a
// live one. *preset.Service implements it.
type PresetLoader interface {
	Load(ctx context.Context, ownerID, id string) (*document.CommissionDocument, error)
}

type Handler struct {
	sessions  *Manager
	ingest    *ingest.Pipeline
	presets   PresetLoader
	maxUpload int64
}

func NewHandler(sessions *Manager, pipeline *ingest.Pipeline, presets PresetLoader, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = ingest.DefaultMaxBytes
	}
	return &Handler{sessions: sessions, ingest: pipeline, presets: presets, maxUpload: maxUpload}
}

type createRequest struct {
	PresetID string `json:"presetId"`
}

type sessionResponse struct {
	ID       string                       `json:"id"`
	OwnerID  string                       `json:"ownerId"`
	Created  time.Time                    `json:"created"`
	Revision int64                        `json:"revision"`
	Document *document.CommissionDocument `json:"document"`
}

type documentResponse struct {
	Revision int64                        `json:"revision"`
	Document *document.CommissionDocument `json:"document"`
}

func newSessionResponse(s *Session) sessionResponse {
	return sessionResponse{
		ID:       s.ID,
		OwnerID:  s.OwnerID,
		Created:  s.Created,
		Revision: s.Store.Revision(),
		Document: s.Store.Snapshot(),
	}
}

// Create opens a session with the default document, or with a saved preset
// when the body names one. An empty body is allowed.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var seed *document.CommissionDocument
	if req.PresetID != "" {
		doc, err := h.presets.Load(r.Context(), ownerID, req.PresetID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		seed = doc
	}

	sess := h.sessions.Create(ownerID, seed)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	ids := h.sessions.IDs(ownerID)
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	id := mux.Vars(r)["sessionId"]

	if err := h.sessions.Close(ownerID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	id := mux.Vars(r)["sessionId"]

	doc, rev, err := h.sessions.Snapshot(ownerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Revision: rev, Document: doc})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	sess, err := h.sessions.Get(ownerID, mux.Vars(r)["sessionId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) Ops(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var op Operation
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid operation"})
		return
	}

	res, err := sess.Apply(op)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Gestures(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var ev gesture.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid gesture event"})
		return
	}

	res, err := sess.HandleGesture(ev)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Images handles a multipart upload with a "file" field. The target query
// parameter picks the slot or list it goes to.
func (h *Handler) Images(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	target, err := ingest.ParseTarget(r.URL.Query().Get("target"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large or malformed"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	res, err := h.ingest.Ingest(r.Context(), sess.Store, target, file)
	if err != nil {
		slog.Warn("image upload rejected", "session", sess.ID, "target", target, "name", header.Filename, "error", err)
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// LoadPreset replaces the live document with a saved preset. Any gesture
// in progress is dropped first so it cannot commit into the new document.
func (h *Handler) LoadPreset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	doc, err := h.presets.Load(r.Context(), sess.OwnerID, mux.Vars(r)["presetId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sess.Surface.Reset()
	sess.Store.Replace(doc)
	writeJSON(w, http.StatusOK, documentResponse{Revision: sess.Store.Revision(), Document: sess.Store.Snapshot()})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, preset.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "preset not found"})
	case errors.Is(err, store.ErrPricingNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrUnknownOperation),
		errors.Is(err, ErrMissingField),
		errors.Is(err, gesture.ErrUnknownEvent),
		errors.Is(err, store.ErrUnknownElement),
		errors.Is(err, store.ErrUnknownList),
		errors.Is(err, store.ErrUnknownSlot),
		errors.Is(err, store.ErrIndexOutOfRange),
		errors.Is(err, store.ErrUnknownField),
		errors.Is(err, store.ErrDuplicateID),
		errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, gesture.ErrNotZoomable),
		errors.Is(err, gesture.ErrInvalidScale),
		errors.Is(err, ingest.ErrUnknownTarget):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ingest.ErrDecode):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "image could not be decoded"})
	case errors.Is(err, ingest.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, preset.ErrRemoteUnavailable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "remote preset store unavailable"})
	default:
		slog.Error("session request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
