package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
)

// DocumentFunc returns a snapshot of one of the owner's session documents.
type DocumentFunc func(ownerID, sessionID string) (*document.CommissionDocument, error)

type Handler struct {
	pipeline  *Pipeline
	documents DocumentFunc
}

func NewHandler(pipeline *Pipeline, documents DocumentFunc) *Handler {
	return &Handler{pipeline: pipeline, documents: documents}
}

func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	ownerID := auth.OwnerIDFromContext(r.Context())

	doc, err := h.documents(ownerID, sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	slog.Info("export started", "session", sessionID, "ratio", h.pipeline.PixelRatio())
	res, err := h.pipeline.Export(r.Context(), doc)
	if err != nil {
		if errors.Is(err, ErrExportFailed) {
			http.Error(w, "EXPORT FAILED", http.StatusInternalServerError)
			return
		}
		slog.Error("export error", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		asciiFilename(res.Filename), url.PathEscape(res.Filename)))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.Write(res.PNG)
}
