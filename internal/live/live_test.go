package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	hub   *Hub
	store *store.Store
	srv   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(quietLogger())
	go hub.Run(ctx)

	st := store.New(nil)
	snapshot := func(ownerID, sessionID string) (*document.CommissionDocument, int64, error) {
		if sessionID != "s1" || ownerID != auth.AnonymousOwnerID {
			return nil, 0, errors.New("not found")
		}
		return st.Snapshot(), st.Revision(), nil
	}
	unsubscribe := st.Subscribe(func(ch store.Change) {
		hub.Publish("s1", ch, st.Snapshot())
	})
	t.Cleanup(unsubscribe)

	authSvc := auth.NewService("secret", true)
	h := NewHandler(hub, snapshot, []string{"*"})
	r := mux.NewRouter()
	r.Use(authSvc.Middleware)
	r.HandleFunc("/ws/sessions/{sessionId}", h.ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{hub: hub, store: st, srv: srv}
}

func (f *fixture) dial(t *testing.T, ctx context.Context, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/sessions/" + session
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func write(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	b, _ := json.Marshal(payload)
	data, _ := json.Marshal(Message{Type: typ, Payload: b})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func waitClients(t *testing.T, hub *Hub, session string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients(session) != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Clients(session), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinReceivesWelcomeAndDocument(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "s1")
	if msg := read(t, ctx, conn); msg.Type != TypeWelcome {
		t.Fatalf("first message = %q, want welcome", msg.Type)
	}
	msg := read(t, ctx, conn)
	if msg.Type != TypeDocSync {
		t.Fatalf("second message = %q, want doc.sync", msg.Type)
	}
	var sync DocSyncPayload
	if err := json.Unmarshal(msg.Payload, &sync); err != nil || sync.Document == nil {
		t.Fatalf("doc.sync payload: %v", err)
	}
	if sync.Document.Theme != document.ThemePink {
		t.Fatalf("theme = %q", sync.Document.Theme)
	}
}

func TestStoreChangesAreBroadcast(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "s1")
	read(t, ctx, conn) // welcome
	read(t, ctx, conn) // doc.sync
	waitClients(t, f.hub, "s1", 1)

	if err := f.store.SetTheme(document.ThemeBlue); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	msg := read(t, ctx, conn)
	if msg.Type != TypeDocChange || msg.Revision != 1 {
		t.Fatalf("message = %q rev %d", msg.Type, msg.Revision)
	}
	var change DocChangePayload
	json.Unmarshal(msg.Payload, &change)
	if change.Change.Kind != store.ChangeTheme || change.Document.Theme != document.ThemeBlue {
		t.Fatalf("change = %+v", change.Change)
	}
}

func TestGesturesReachOtherTabsOnly(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := f.dial(t, ctx, "s1")
	read(t, ctx, a)
	read(t, ctx, a)
	b := f.dial(t, ctx, "s1")
	read(t, ctx, b)
	read(t, ctx, b)
	waitClients(t, f.hub, "s1", 2)

	write(t, ctx, a, TypeGestureUpdate, GesturePayload{Key: "avatar", Transform: document.Transform2D{X: 80, Scale: 1}})
	msg := read(t, ctx, b)
	if msg.Type != TypeGestureUpdate {
		t.Fatalf("b got %q", msg.Type)
	}
	var g GesturePayload
	json.Unmarshal(msg.Payload, &g)
	if g.Key != "avatar" || g.Transform.X != 80 || g.ClientID == "" {
		t.Fatalf("gesture = %+v", g)
	}

	// A late joiner sees the in-flight gesture.
	c := f.dial(t, ctx, "s1")
	if msg := read(t, ctx, c); msg.Type != TypeWelcome {
		t.Fatalf("c first = %q", msg.Type)
	}
	if msg := read(t, ctx, c); msg.Type != TypeGestureState {
		t.Fatalf("c second = %q, want gesture.state", msg.Type)
	}

	// The transient value never reached the store.
	if tr, _ := f.store.ElementTransform(document.ElementAvatar); tr.X != 0 {
		t.Fatalf("store changed by gesture: %+v", tr)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/sessions/nope"
	if _, _, err := websocket.Dial(ctx, url, nil); err == nil {
		t.Fatal("dial to unknown session succeeded")
	}
}

func TestCloseSessionDisconnects(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, "s1")
	read(t, ctx, conn)
	read(t, ctx, conn)
	waitClients(t, f.hub, "s1", 1)

	f.hub.CloseSession("s1")
	if msg := read(t, ctx, conn); msg.Type != TypeSessionClosed {
		t.Fatalf("got %q, want session.closed", msg.Type)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("connection still open")
	}
	waitClients(t, f.hub, "s1", 0)
}

func TestGestureTracker(t *testing.T) {
	gt := NewGestureTracker()
	gt.Update("c1", GesturePayload{Key: "avatar"})
	gt.Update("c1", GesturePayload{Key: "status"})
	gt.Update("c2", GesturePayload{Key: "mainImages/0"})
	gt.End("c1", "status")

	all := gt.All()
	if len(all) != 2 || all[0].ClientID != "c1" || all[1].Key != "mainImages/0" {
		t.Fatalf("All = %+v", all)
	}
	if keys := gt.Remove("c2"); len(keys) != 1 || keys[0] != "mainImages/0" {
		t.Fatalf("Remove = %v", keys)
	}
	if len(gt.All()) != 1 {
		t.Fatalf("All after remove = %+v", gt.All())
	}
}
