// Package live pushes document changes of an editing session to every
// browser tab attached to it over WebSocket.
package live

import (
	"encoding/json"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/store"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Revision  int64           `json:"revision,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Document sync. A tab keeps the highest revision it has seen and
	// ignores anything older.
	TypeDocSync   = "doc.sync"
	TypeDocChange = "doc.change"

	TypeSessionClosed = "session.closed"

	// In-flight gestures of other tabs. These never touch the store.
	TypeGestureUpdate = "gesture.update"
	TypeGestureEnd    = "gesture.end"
	TypeGestureState  = "gesture.state"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	OwnerID  string `json:"ownerId"`
}

type DocSyncPayload struct {
	Document *document.CommissionDocument `json:"document"`
}

type DocChangePayload struct {
	Change   store.Change                 `json:"change"`
	Document *document.CommissionDocument `json:"document"`
}

// GesturePayload is the transient transform of one element or image while
// a tab drags or zooms it.
type GesturePayload struct {
	Key       string               `json:"key"`
	Transform document.Transform2D `json:"transform"`
	ClientID  string               `json:"clientId,omitempty"`
}

type GestureStatePayload struct {
	Gestures []GesturePayload `json:"gestures"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(typ, sessionID string, rev int64, payload any) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{Type: typ, SessionID: sessionID, Revision: rev, Payload: raw}, nil
}
