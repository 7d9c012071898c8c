package engine

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dohnagen/sheetgen/internal/document"
)

func newTestEngine(t *testing.T) (*Engine, *[]TransformOp) {
	t.Helper()
	var ops []TransformOp
	e := NewEngine(func(b []byte) {
		var op TransformOp
		if err := json.Unmarshal(b, &op); err != nil {
			t.Fatalf("commit payload: %v", err)
		}
		ops = append(ops, op)
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return e, &ops
}

func TestDragForwardsOneCommit(t *testing.T) {
	e, ops := newTestEngine(t)
	if got := e.SetViewportWidth(800); got != 0.6 {
		t.Fatalf("scale = %v, want 0.6", got)
	}

	events := []string{
		`{"kind":"down","key":{"element":"status"},"points":[{"x":10,"y":10}]}`,
		`{"kind":"move","points":[{"x":40,"y":10}]}`,
		`{"kind":"move","points":[{"x":70,"y":40}]}`,
	}
	for _, ev := range events {
		if out := e.HandleEvent(ev); strings.Contains(out, "error") {
			t.Fatalf("HandleEvent(%s) = %s", ev, out)
		}
	}
	if len(*ops) != 0 {
		t.Fatalf("moves forwarded %d commits", len(*ops))
	}
	if got := e.Dragging(); got != `{"element":"status"}` {
		t.Fatalf("Dragging = %s", got)
	}

	out := e.HandleEvent(`{"kind":"up"}`)
	var res struct {
		Committed bool                  `json:"committed"`
		Display   *document.Transform2D `json:"display"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("result %s: %v", out, err)
	}
	if !res.Committed || res.Display == nil || res.Display.X != 100 || res.Display.Y != 50 {
		t.Fatalf("up result = %s", out)
	}

	if len(*ops) != 1 {
		t.Fatalf("forwarded %d commits, want 1", len(*ops))
	}
	op := (*ops)[0]
	if op.Type != "element.transform" || op.Element != document.ElementStatus {
		t.Fatalf("op = %+v", op)
	}
	if op.Transform.X == nil || *op.Transform.X != 100 || op.Transform.Scale != nil {
		t.Fatalf("patch = %+v", op.Transform)
	}
	if e.Dragging() != "null" {
		t.Fatal("drag still active after up")
	}
}

func TestImageSliderForwardsIndex(t *testing.T) {
	e, ops := newTestEngine(t)
	doc := document.Default()
	doc.Portfolio.MainImages = []document.ImageItem{
		{ID: "img_a", Transform: document.IdentityTransform()},
	}
	b, _ := json.Marshal(doc)
	if err := e.LoadDocument(string(b)); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	e.HandleEvent(`{"kind":"slider","key":{"list":"mainImages"},"value":2.5}`)
	e.HandleEvent(`{"kind":"sliderRelease","key":{"list":"mainImages"}}`)

	if len(*ops) != 1 {
		t.Fatalf("forwarded %d commits, want 1", len(*ops))
	}
	op := (*ops)[0]
	if op.Type != "image.transform" || op.Index == nil || *op.Index != 0 || *op.Transform.Scale != 2.5 {
		t.Fatalf("op = %+v", op)
	}
}

func TestUpdateDocumentDropsRemovedImages(t *testing.T) {
	e, ops := newTestEngine(t)
	doc := document.Default()
	doc.Portfolio.ExhibitionImages = []document.ImageItem{
		{ID: "img_a", Transform: document.IdentityTransform()},
		{ID: "img_b", Transform: document.IdentityTransform()},
	}
	b, _ := json.Marshal(doc)
	if err := e.LoadDocument(string(b)); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	e.HandleEvent(`{"kind":"down","key":{"list":"exhibitionImages","index":1},"points":[{"x":0,"y":0}]}`)

	doc.Portfolio.ExhibitionImages = doc.Portfolio.ExhibitionImages[:1]
	b, _ = json.Marshal(doc)
	if err := e.UpdateDocument(string(b)); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if e.Dragging() != "null" {
		t.Fatal("drag on removed image survived the update")
	}
	e.HandleEvent(`{"kind":"up"}`)
	if len(*ops) != 0 {
		t.Fatalf("forwarded %d commits for a removed image", len(*ops))
	}
}

func TestHandleEventErrors(t *testing.T) {
	e, _ := newTestEngine(t)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bad json", `{`, "decode event"},
		{"unknown kind", `{"kind":"pinch"}`, "unknown gesture event"},
		{"wheel on text", `{"kind":"wheel","key":{"element":"title"},"deltaY":1}`, "does not take scale input"},
		{"unknown element", `{"kind":"down","key":{"element":"banner"},"points":[{"x":0,"y":0}]}`, "unknown element"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out := e.HandleEvent(tt.in); !strings.Contains(out, tt.want) {
				t.Fatalf("HandleEvent = %s, want error containing %q", out, tt.want)
			}
		})
	}
	if err := e.LoadDocument("not json"); err == nil {
		t.Fatal("LoadDocument accepted garbage")
	}
}
