package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"

	"github.com/dohnagen/sheetgen/internal/document"
	"github.com/dohnagen/sheetgen/internal/ingest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mapOpener map[string]image.Image

func (m mapOpener) Open(_ context.Context, ref string) (image.Image, error) {
	if img, ok := m[ref]; ok {
		return img, nil
	}
	return nil, errors.New("tainted")
}

func TestFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"摄氏零度", "摄氏零度-DOHNA.png"},
		{"Jane Doe", "Jane_Doe-DOHNA.png"},
		{"a/b", "a-b-DOHNA.png"},
		{"  ", "commission-DOHNA.png"},
	}
	for _, tt := range tests {
		if got := Filename(tt.in); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportDefaultDocument(t *testing.T) {
	p := New(NewCompositor(mapOpener{}), 2, quietLogger())
	res, err := p.Export(context.Background(), document.Default())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Width != 1500 {
		t.Fatalf("Width = %d, want 1500 at ratio 2", res.Width)
	}
	img, err := imaging.Decode(bytes.NewReader(res.PNG))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != res.Width || img.Bounds().Dy() != res.Height {
		t.Fatalf("png bounds %v != %dx%d", img.Bounds(), res.Width, res.Height)
	}
}

func TestPixelRatioScalesOutput(t *testing.T) {
	doc := document.Default()
	one, err := NewCompositor(nil).Rasterize(context.Background(), doc, 1)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	two, err := NewCompositor(nil).Rasterize(context.Background(), doc, 2)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if two.Bounds().Dx() != 2*one.Bounds().Dx() {
		t.Fatalf("widths %d and %d", one.Bounds().Dx(), two.Bounds().Dx())
	}
	if d := two.Bounds().Dy() - 2*one.Bounds().Dy(); d < -1 || d > 1 {
		t.Fatalf("heights %d and %d", one.Bounds().Dy(), two.Bounds().Dy())
	}
}

func TestHiddenSectionsShrinkPoster(t *testing.T) {
	full := document.Default()
	bare := document.Default()
	bare.Visibility = document.Visibility{}

	a, _ := NewCompositor(nil).Rasterize(context.Background(), full, 1)
	b, _ := NewCompositor(nil).Rasterize(context.Background(), bare, 1)
	if b.Bounds().Dy() >= a.Bounds().Dy() {
		t.Fatalf("hidden sections did not shrink the poster: %d >= %d", b.Bounds().Dy(), a.Bounds().Dy())
	}
}

func TestExportDrawsImages(t *testing.T) {
	doc := document.Default()
	doc.Identity.AvatarRef = "avatar"
	doc.Portfolio.MainImages = []document.ImageItem{document.NewImageItem("main", true)}
	opener := mapOpener{
		"avatar": imaging.New(10, 10, color.NRGBA{G: 255, A: 255}),
		"main":   imaging.New(40, 20, color.NRGBA{R: 255, A: 255}),
	}

	img, err := NewCompositor(opener).Rasterize(context.Background(), doc, 1)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}

	// Centre of the default avatar frame.
	c := color.NRGBAModel.Convert(img.At(int(pad+contentWidth-16-avatarSize/2), int(pad+titleHeight+pad+avatarSize/2))).(color.NRGBA)
	if c.G < 250 || c.R > 5 {
		t.Fatalf("avatar pixel = %+v, want green", c)
	}
}

func TestExportFailureProducesNothing(t *testing.T) {
	doc := document.Default()
	doc.Contact.BackgroundRef = "https://elsewhere.example/bg.png"

	p := New(NewCompositor(mapOpener{}), 2, quietLogger())
	res, err := p.Export(context.Background(), doc)
	if !errors.Is(err, ErrExportFailed) {
		t.Fatalf("Export = %v, want ErrExportFailed", err)
	}
	if res.PNG != nil {
		t.Fatal("partial output returned")
	}
}

func TestExportDoesNotFetchLocalRefs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	doc := document.Default()
	doc.Identity.AvatarRef = srv.URL + "/avatar.png"

	p := New(NewCompositor(ingest.NewResolver(srv.Client(), ingest.CloudinaryHost)), 2, quietLogger())
	if _, err := p.Export(context.Background(), doc); !errors.Is(err, ErrExportFailed) {
		t.Fatalf("Export = %v, want ErrExportFailed", err)
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("server saw %d requests, want 0", n)
	}
}

func TestHandler(t *testing.T) {
	doc := document.Default()
	doc.Identity.Name = "Jane Doe"
	h := NewHandler(New(NewCompositor(nil), 1, quietLogger()), func(ownerID, id string) (*document.CommissionDocument, error) {
		if id != "s1" {
			return nil, errors.New("no session")
		}
		return doc, nil
	})
	r := mux.NewRouter()
	r.HandleFunc("/api/sessions/{sessionId}/export.png", h.ExportPNG)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1/export.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="Jane_Doe-DOHNA.png"`) {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nope/export.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", rec.Code)
	}
}
