package live

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
)

// Snapshotter returns the owner's session document and its revision.
type Snapshotter func(ownerID, sessionID string) (*document.CommissionDocument, int64, error)

type Handler struct {
	hub      *Hub
	snapshot Snapshotter
	origins  []string
}

func NewHandler(hub *Hub, snapshot Snapshotter, originPatterns []string) *Handler {
	return &Handler{hub: hub, snapshot: snapshot, origins: originPatterns}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	ownerID := auth.OwnerIDFromContext(r.Context())

	if _, _, err := h.snapshot(ownerID, sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, ownerID, sessionID, clientID)

	if msg, err := newMessage(TypeWelcome, sessionID, 0, WelcomePayload{ClientID: clientID, OwnerID: ownerID}); err == nil {
		client.Send(msg)
	}
	h.hub.Register(client)

	// Snapshot after joining so no change falls between the two.
	doc, rev, err := h.snapshot(ownerID, sessionID)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "session closed")
		h.hub.Unregister(client)
		return
	}
	if msg, err := newMessage(TypeDocSync, sessionID, rev, DocSyncPayload{Document: doc}); err == nil {
		client.Send(msg)
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
