package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/auth"
	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/geometry"
	"github.com/dohnagen/sheetgen/internal/gesture"
	"github.com/dohnagen/sheetgen/internal/ingest"
	"github.com/dohnagen/sheetgen/internal/preset"
	"github.com/dohnagen/sheetgen/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []store.Change
	closed  []string
}

func (p *fakePublisher) Publish(_ string, ch store.Change, _ *document.CommissionDocument) {
	p.mu.Lock()
	p.changes = append(p.changes, ch)
	p.mu.Unlock()
}

func (p *fakePublisher) CloseSession(id string) {
	p.mu.Lock()
	p.closed = append(p.closed, id)
	p.mu.Unlock()
}

func (p *fakePublisher) published() []store.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]store.Change(nil), p.changes...)
}

func ptr[T any](v T) *T { return &v }

func TestManagerOwnerScoping(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(pub, quietLogger())
	sess := m.Create("U1", nil)

	if _, err := m.Get("U1", sess.ID); err != nil {
		t.Fatalf("Get own session: %v", err)
	}
	if _, err := m.Get("U2", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get other owner's session: got %v, want ErrNotFound", err)
	}
	if _, err := m.Get("U1", "not-a-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get malformed id: got %v, want ErrNotFound", err)
	}
	if _, err := m.Document("U2", sess.ID); !errors.Is(err, preset.ErrNoSession) {
		t.Fatalf("Document for other owner: got %v, want preset.ErrNoSession", err)
	}

	if err := m.Close("U1", sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Get("U1", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after close: got %v, want ErrNotFound", err)
	}
	if len(pub.closed) != 1 || pub.closed[0] != sess.ID {
		t.Fatalf("closed feeds = %v, want [%s]", pub.closed, sess.ID)
	}
}

func TestManagerPublishesChanges(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(pub, quietLogger())
	sess := m.Create("U1", nil)

	if err := sess.Store.SetText(store.FieldName, "DOHNA"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	got := pub.published()
	if len(got) != 1 || got[0].Revision != 1 || got[0].Kind != store.ChangeIdentity {
		t.Fatalf("published = %+v, want one identity change at revision 1", got)
	}

	m.CloseAll()
	if err := sess.Store.SetText(store.FieldName, "AFTER"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if n := len(pub.published()); n != 1 {
		t.Fatalf("changes after close were published: %d", n)
	}
}

func TestManagerSweep(t *testing.T) {
	m := NewManager(nil, quietLogger())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Create("U1", nil)
	now = now.Add(time.Hour)
	fresh := m.Create("U1", nil)

	if n := m.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("Sweep closed %d sessions, want 1", n)
	}
	if _, err := m.Get("U1", old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle session survived sweep: %v", err)
	}
	if _, err := m.Get("U1", fresh.ID); err != nil {
		t.Fatalf("fresh session swept: %v", err)
	}
}

func TestApplyOperations(t *testing.T) {
	m := NewManager(nil, quietLogger())

	tests := []struct {
		name  string
		op    Operation
		check func(t *testing.T, d *document.CommissionDocument, res OpResult)
		err   error
	}{
		{
			name: "set name",
			op:   Operation{Type: OpSetText, Field: string(store.FieldName), Value: ptr("LUMI")},
			check: func(t *testing.T, d *document.CommissionDocument, _ OpResult) {
				if d.Identity.Name != "LUMI" {
					t.Fatalf("name = %q", d.Identity.Name)
				}
			},
		},
		{
			name: "spacing clamps",
			op:   Operation{Type: OpSetSpacing, Field: string(store.SpacingPricing), Px: ptr(400)},
			check: func(t *testing.T, d *document.CommissionDocument, _ OpResult) {
				if d.Layout.PricingSpacing != document.SpacingMax {
					t.Fatalf("pricing spacing = %d", d.Layout.PricingSpacing)
				}
			},
		},
		{
			name: "toggle reports new value",
			op:   Operation{Type: OpToggleVisibility, Field: string(store.ShowNotice)},
			check: func(t *testing.T, d *document.CommissionDocument, res OpResult) {
				if res.Visible == nil || *res.Visible || d.Visibility.ShowNotice {
					t.Fatalf("visible = %v, doc = %v", res.Visible, d.Visibility.ShowNotice)
				}
			},
		},
		{
			name: "element transform clamps scale",
			op: Operation{Type: OpElementTransform, Element: document.ElementAvatar,
				Transform: &store.TransformPatch{X: ptr(12.0), Scale: ptr(9.0)}},
			check: func(t *testing.T, d *document.CommissionDocument, _ OpResult) {
				got := d.ElementTransform(document.ElementAvatar)
				if got.X != 12 || got.Y != 0 || got.Scale != geometry.HeaderBounds.Max {
					t.Fatalf("avatar = %+v", got)
				}
			},
		},
		{
			name: "add pricing returns the item",
			op:   Operation{Type: OpAddPricing},
			check: func(t *testing.T, d *document.CommissionDocument, res OpResult) {
				if res.Item == nil || res.Item.Title != document.DefaultPricingTitle {
					t.Fatalf("item = %+v", res.Item)
				}
				if last := d.Pricing[len(d.Pricing)-1]; last.ID != res.Item.ID {
					t.Fatalf("last pricing id = %q, want %q", last.ID, res.Item.ID)
				}
			},
		},
		{
			name: "unknown element",
			op:   Operation{Type: OpElementTransform, Element: "banner", Transform: &store.TransformPatch{X: ptr(1.0)}},
			err:  store.ErrUnknownElement,
		},
		{
			name: "remove image out of range",
			op:   Operation{Type: OpRemoveImage, List: document.ListMain, Index: ptr(7)},
			err:  store.ErrIndexOutOfRange,
		},
		{
			name: "missing value",
			op:   Operation{Type: OpSetText, Field: string(store.FieldName)},
			err:  ErrMissingField,
		},
		{
			name: "unknown type",
			op:   Operation{Type: "object.delete"},
			err:  ErrUnknownOperation,
		},
		{
			name: "missing pricing item",
			op:   Operation{Type: OpRemovePricing, ItemID: "price_nope"},
			err:  store.ErrPricingNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := m.Create("U1", nil)
			before := sess.Store.Revision()
			res, err := sess.Apply(tt.op)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Apply error = %v, want %v", err, tt.err)
				}
				if res.Revision != before {
					t.Fatalf("failed op moved revision %d -> %d", before, res.Revision)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			tt.check(t, sess.Store.Snapshot(), res)
		})
	}
}

func TestRemoveImageDropsGestureState(t *testing.T) {
	m := NewManager(nil, quietLogger())
	sess := m.Create("U1", nil)
	for _, id := range []string{"img_a", "img_b"} {
		if err := sess.Store.AppendImage(document.ListMain, document.ImageItem{ID: id, Transform: document.IdentityTransform()}); err != nil {
			t.Fatalf("AppendImage: %v", err)
		}
	}

	key := gesture.ImageKey(document.ListMain, 1)
	if _, err := sess.HandleGesture(gesture.Event{Kind: gesture.EventDown, Key: key, Points: []geometry.Point{{X: 0, Y: 0}}}); err != nil {
		t.Fatalf("down: %v", err)
	}
	if _, err := sess.Apply(Operation{Type: OpRemoveImage, List: document.ListMain, Index: ptr(1)}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, active := sess.Surface.Active(); active {
		t.Fatal("drag on removed image is still active")
	}
	res, err := sess.HandleGesture(gesture.Event{Kind: gesture.EventUp})
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if res.Committed {
		t.Fatal("release after removal committed")
	}
}

func TestGestureDragCommitsOnce(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(pub, quietLogger())
	sess := m.Create("U1", nil)
	avatar := gesture.ElementKey(document.ElementAvatar)

	steps := []gesture.Event{
		{Kind: gesture.EventViewport, ViewportWidth: 1200},
		{Kind: gesture.EventDown, Key: avatar, Points: []geometry.Point{{X: 100, Y: 100}}},
		{Kind: gesture.EventMove, Points: []geometry.Point{{X: 115, Y: 100}}},
		{Kind: gesture.EventMove, Points: []geometry.Point{{X: 130, Y: 130}}},
	}
	for _, ev := range steps {
		if _, err := sess.HandleGesture(ev); err != nil {
			t.Fatalf("%s: %v", ev.Kind, err)
		}
	}
	if n := len(pub.published()); n != 0 {
		t.Fatalf("moves wrote to the store %d times", n)
	}

	res, err := sess.HandleGesture(gesture.Event{Kind: gesture.EventUp})
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if !res.Committed || res.Click {
		t.Fatalf("up result = %+v", res)
	}
	got := sess.Store.Snapshot().ElementTransform(document.ElementAvatar)
	if got.X != 40 || got.Y != 40 {
		t.Fatalf("avatar = %+v, want (40, 40) at scale 0.75", got)
	}
	if n := len(pub.published()); n != 1 {
		t.Fatalf("store writes = %d, want 1", n)
	}
}

func TestGestureAbortRestores(t *testing.T) {
	m := NewManager(nil, quietLogger())
	sess := m.Create("U1", nil)
	status := gesture.ElementKey(document.ElementStatus)

	sess.HandleGesture(gesture.Event{Kind: gesture.EventDown, Key: status, Points: []geometry.Point{{X: 0, Y: 0}}})
	sess.HandleGesture(gesture.Event{Kind: gesture.EventMove, Points: []geometry.Point{{X: 50, Y: 0}}})
	res, err := sess.HandleGesture(gesture.Event{Kind: gesture.EventAbort})
	if err != nil {
		t.Fatalf("abort: %v", err)
	}
	if res.Display == nil || res.Display.X != 0 {
		t.Fatalf("display after abort = %+v", res.Display)
	}
	if rev := sess.Store.Revision(); rev != 0 {
		t.Fatalf("abort wrote to the store: revision %d", rev)
	}
}

func TestGestureWheelAndSlider(t *testing.T) {
	m := NewManager(nil, quietLogger())
	sess := m.Create("U1", nil)

	res, err := sess.HandleGesture(gesture.Event{Kind: gesture.EventWheel, Key: gesture.ElementKey(document.ElementAvatar), DeltaY: -120})
	if err != nil {
		t.Fatalf("wheel: %v", err)
	}
	if res.Scale != 1.1 || !res.Committed {
		t.Fatalf("wheel result = %+v", res)
	}

	if _, err := sess.HandleGesture(gesture.Event{Kind: gesture.EventWheel, Key: gesture.ElementKey(document.ElementTitle), DeltaY: -120}); !errors.Is(err, gesture.ErrNotZoomable) {
		t.Fatalf("wheel on title: got %v, want ErrNotZoomable", err)
	}

	bg := gesture.ElementKey(document.ElementContactBg)
	if res, err = sess.HandleGesture(gesture.Event{Kind: gesture.EventSlider, Key: bg, Value: 10}); err != nil {
		t.Fatalf("slider: %v", err)
	}
	if res.Scale != geometry.HeaderBounds.Max {
		t.Fatalf("slider scale = %v, want clamped to %v", res.Scale, geometry.HeaderBounds.Max)
	}
	before := sess.Store.Revision()
	if res, err = sess.HandleGesture(gesture.Event{Kind: gesture.EventSliderRelease, Key: bg}); err != nil || !res.Committed {
		t.Fatalf("slider release = %+v, %v", res, err)
	}
	if res.Revision != before+1 {
		t.Fatalf("slider release revision = %d, want %d", res.Revision, before+1)
	}
	doc := sess.Store.Snapshot()
	if doc.Contact.BackgroundTransform.Scale != geometry.HeaderBounds.Max {
		t.Fatalf("contact background scale = %v", doc.Contact.BackgroundTransform.Scale)
	}

	if _, err := sess.HandleGesture(gesture.Event{Kind: "pinch"}); !errors.Is(err, gesture.ErrUnknownEvent) {
		t.Fatalf("unknown kind: got %v", err)
	}
}

// api wires the session, preset and ingest handlers the way cmd/server
// does, with the owner taken from a test header.
type api struct {
	srv      *httptest.Server
	sessions *Manager
	presets  *preset.Service
}

func newAPI(t *testing.T) *api {
	t.Helper()
	local, err := preset.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "presets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	presets := preset.NewService(local, preset.WithLogger(quietLogger()))
	sessions := NewManager(nil, quietLogger())
	pipeline := ingest.New(ingest.DataURLStore{}, nil, ingest.WithLogger(quietLogger()))

	h := NewHandler(sessions, pipeline, presets, 0)
	ph := preset.NewHandler(presets, sessions)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithOwnerID(r.Context(), r.Header.Get("X-Owner"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.HandleFunc("/api/sessions", h.Create).Methods("POST")
	r.HandleFunc("/api/sessions", h.List).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/sessions/{sessionId}/document", h.Document).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}/ops", h.Ops).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/gestures", h.Gestures).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/images", h.Images).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/presets/{presetId}/load", h.LoadPreset).Methods("POST")
	r.HandleFunc("/api/presets", ph.Save).Methods("POST")
	r.HandleFunc("/api/presets", ph.List).Methods("GET")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &api{srv: srv, sessions: sessions, presets: presets}
}

func (a *api) do(t *testing.T, owner, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Owner", owner)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// TestEditSaveListScenario clears the default pricing, adds one item,
// drags the avatar 40px at preview scale 0.5 and saves locally.
func TestEditSaveListScenario(t *testing.T) {
	a := newAPI(t)

	var created sessionResponse
	if code := a.do(t, "U1", "POST", "/api/sessions", nil, &created); code != http.StatusCreated {
		t.Fatalf("create session: %d", code)
	}
	base := "/api/sessions/" + created.ID

	for _, item := range created.Document.Pricing {
		if code := a.do(t, "U1", "POST", base+"/ops", Operation{Type: OpRemovePricing, ItemID: item.ID}, nil); code != http.StatusOK {
			t.Fatalf("remove pricing %s: %d", item.ID, code)
		}
	}
	var added OpResult
	if code := a.do(t, "U1", "POST", base+"/ops", Operation{Type: OpAddPricing}, &added); code != http.StatusOK {
		t.Fatalf("add pricing: %d", code)
	}

	sess, err := a.sessions.Get("U1", created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := sess.Surface.SetScaleFactor(0.5); err != nil {
		t.Fatalf("SetScaleFactor: %v", err)
	}
	avatar := gesture.ElementKey(document.ElementAvatar)
	for _, ev := range []gesture.Event{
		{Kind: gesture.EventDown, Key: avatar, Points: []geometry.Point{{X: 200, Y: 50}}},
		{Kind: gesture.EventMove, Points: []geometry.Point{{X: 240, Y: 50}}},
		{Kind: gesture.EventUp},
	} {
		if code := a.do(t, "U1", "POST", base+"/gestures", ev, nil); code != http.StatusOK {
			t.Fatalf("gesture %s: %d", ev.Kind, code)
		}
	}

	var doc documentResponse
	a.do(t, "U1", "GET", base+"/document", nil, &doc)
	if n := len(doc.Document.Pricing); n != 1 {
		t.Fatalf("pricing length = %d, want 1", n)
	}
	if x := doc.Document.ElementTransform(document.ElementAvatar).X; x != 80 {
		t.Fatalf("avatar x = %v, want 80", x)
	}

	var saved struct {
		Preset   preset.Preset   `json:"preset"`
		Location preset.Location `json:"location"`
	}
	code := a.do(t, "U1", "POST", "/api/presets", map[string]string{"sessionId": created.ID, "name": "Test"}, &saved)
	if code != http.StatusCreated {
		t.Fatalf("save preset: %d", code)
	}
	if saved.Location != preset.LocationLocal {
		t.Fatalf("save location = %q, want local", saved.Location)
	}

	var listed struct {
		Presets []preset.Preset `json:"presets"`
		Source  preset.Location `json:"source"`
	}
	a.do(t, "U1", "GET", "/api/presets", nil, &listed)
	if len(listed.Presets) != 1 || listed.Presets[0].Name != "Test" || listed.Source != preset.LocationLocal {
		t.Fatalf("listing = %+v", listed)
	}
}

func TestLoadPresetReplacesDocument(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	saved := document.Default()
	saved.Identity.Name = "SAVED"
	p, _, err := a.presets.Save(ctx, "U1", "snap", saved)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	var created sessionResponse
	a.do(t, "U1", "POST", "/api/sessions", nil, &created)
	base := "/api/sessions/" + created.ID

	var loaded documentResponse
	if code := a.do(t, "U1", "POST", base+"/presets/"+p.ID+"/load", nil, &loaded); code != http.StatusOK {
		t.Fatalf("load: %d", code)
	}
	if loaded.Document.Identity.Name != "SAVED" || loaded.Revision != 1 {
		t.Fatalf("loaded = rev %d name %q", loaded.Revision, loaded.Document.Identity.Name)
	}

	if code := a.do(t, "U2", "POST", base+"/presets/"+p.ID+"/load", nil, nil); code != http.StatusNotFound {
		t.Fatalf("load from another owner: %d, want 404", code)
	}
	if code := a.do(t, "U1", "POST", base+"/presets/missing/load", nil, nil); code != http.StatusNotFound {
		t.Fatalf("load missing preset: %d, want 404", code)
	}

	var seeded sessionResponse
	if code := a.do(t, "U1", "POST", "/api/sessions", createRequest{PresetID: p.ID}, &seeded); code != http.StatusCreated {
		t.Fatalf("create from preset: %d", code)
	}
	if seeded.Document.Identity.Name != "SAVED" || seeded.Revision != 0 {
		t.Fatalf("seeded = rev %d name %q", seeded.Revision, seeded.Document.Identity.Name)
	}
}

func TestHTTPErrorMapping(t *testing.T) {
	a := newAPI(t)
	var created sessionResponse
	a.do(t, "U1", "POST", "/api/sessions", nil, &created)
	base := "/api/sessions/" + created.ID

	tests := []struct {
		name   string
		owner  string
		method string
		path   string
		body   any
		want   int
	}{
		{"other owner", "U2", "GET", base + "/document", nil, http.StatusNotFound},
		{"unknown session", "U1", "GET", "/api/sessions/sess_01h455vb4pex5vsknk084sn02q/document", nil, http.StatusNotFound},
		{"unknown op", "U1", "POST", base + "/ops", Operation{Type: "nope"}, http.StatusBadRequest},
		{"bad theme", "U1", "POST", base + "/ops", Operation{Type: OpSetTheme, Theme: "neon"}, http.StatusBadRequest},
		{"missing pricing", "U1", "POST", base + "/ops", Operation{Type: OpRemovePricing, ItemID: "x"}, http.StatusNotFound},
		{"bad gesture", "U1", "POST", base + "/gestures", gesture.Event{Kind: "fling"}, http.StatusBadRequest},
		{"bad target", "U1", "POST", base + "/images?target=banner", nil, http.StatusBadRequest},
		{"delete", "U1", "DELETE", base, nil, http.StatusNoContent},
		{"delete twice", "U1", "DELETE", base, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := a.do(t, tt.owner, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func uploadImage(t *testing.T, url, owner string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req, err := http.NewRequest("POST", url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner", owner)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestImageUpload(t *testing.T) {
	a := newAPI(t)
	var created sessionResponse
	a.do(t, "U1", "POST", "/api/sessions", nil, &created)
	base := a.srv.URL + "/api/sessions/" + created.ID

	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var png8x4 bytes.Buffer
	if err := png.Encode(&png8x4, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	resp := uploadImage(t, base+"/images?target=main", "U1", png8x4.Bytes())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var res ingest.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.IsLandscape || res.Width != 8 || res.ItemID == "" {
		t.Fatalf("result = %+v", res)
	}

	sess, _ := a.sessions.Get("U1", created.ID)
	doc := sess.Store.Snapshot()
	if n := len(doc.Portfolio.MainImages); n != 1 || doc.Portfolio.MainImages[0].ID != res.ItemID {
		t.Fatalf("main images = %+v", doc.Portfolio.MainImages)
	}

	avatarBefore := doc.Identity.AvatarRef
	resp = uploadImage(t, base+"/images?target=avatar", "U1", []byte("not an image"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("corrupt upload status = %d, want 422", resp.StatusCode)
	}
	if got := sess.Store.Snapshot().Identity.AvatarRef; got != avatarBefore {
		t.Fatal("corrupt upload changed the avatar")
	}
}
