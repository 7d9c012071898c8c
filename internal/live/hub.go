package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/store"
)

type Room struct {
	sessionID string
	clients   map[string]*Client // clientID -> client
	gestures  *GestureTracker
}

func NewRoom(sessionID string) *Room {
	return &Room{
		sessionID: sessionID,
		clients:   make(map[string]*Client),
		gestures:  NewGestureTracker(),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes joins and leaves until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for _, c := range room.clients {
					c.close()
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		room = NewRoom(client.SessionID)
		h.rooms[client.SessionID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	if gestures := room.gestures.All(); len(gestures) > 0 {
		msg, err := newMessage(TypeGestureState, client.SessionID, 0, GestureStatePayload{Gestures: gestures})
		if err == nil {
			client.Send(msg)
		}
	}
	h.log.Info("client joined", "owner", client.OwnerID, "session", client.SessionID, "client", client.ClientID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	ended := room.gestures.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()

	for _, key := range ended {
		h.broadcastGesture(client.SessionID, TypeGestureEnd, GesturePayload{Key: key, ClientID: client.ClientID}, "")
	}
	h.log.Info("client left", "owner", client.OwnerID, "session", client.SessionID, "client", client.ClientID)
}

// Publish fans a committed store change out to the session's tabs.
func (h *Hub) Publish(sessionID string, ch store.Change, doc *document.CommissionDocument) {
	msg, err := newMessage(TypeDocChange, sessionID, ch.Revision, DocChangePayload{Change: ch, Document: doc})
	if err != nil {
		h.log.Error("marshal change", "session", sessionID, "error", err)
		return
	}
	h.broadcastToRoom(sessionID, msg, "")
}

// CloseSession tells the session's tabs it is gone and disconnects them.
func (h *Hub) CloseSession(sessionID string) {
	msg, _ := newMessage(TypeSessionClosed, sessionID, 0, nil)

	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	if ok {
		delete(h.rooms, sessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	for _, c := range room.clients {
		c.Send(msg)
		c.close()
	}
}

// Clients returns the number of tabs attached to a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[sessionID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeGestureUpdate, TypeGestureEnd:
		h.handleGesture(sender, msg)
	default:
		h.log.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		errMsg, _ := newMessage(TypeError, sender.SessionID, 0, ErrorPayload{Message: "unknown message type"})
		sender.Send(errMsg)
	}
}

func (h *Hub) handleGesture(sender *Client, msg *Message) {
	var g GesturePayload
	if err := json.Unmarshal(msg.Payload, &g); err != nil || g.Key == "" {
		h.log.Warn("invalid gesture payload", "client", sender.ClientID, "error", err)
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.SessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	g.ClientID = sender.ClientID
	if msg.Type == TypeGestureUpdate {
		room.gestures.Update(sender.ClientID, g)
	} else {
		room.gestures.End(sender.ClientID, g.Key)
	}
	h.broadcastGesture(sender.SessionID, msg.Type, g, sender.ClientID)
}

func (h *Hub) broadcastGesture(sessionID, typ string, g GesturePayload, exclude string) {
	msg, err := newMessage(typ, sessionID, 0, g)
	if err != nil {
		return
	}
	msg.ClientID = g.ClientID
	h.broadcastToRoom(sessionID, msg, exclude)
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	// Send never blocks.
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}
