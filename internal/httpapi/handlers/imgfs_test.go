package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"imgfs/internal/config"
	"imgfs/internal/imgfs"
	"imgfs/internal/service"
	"imgfs/internal/storage"

	"github.com/labstack/echo/v4"
)

func jpegBytes(t *testing.T, w, h int, tint uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: tint, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func newTestEcho(t *testing.T, capacity uint32, snapshots storage.SnapshotStorage) *echo.Echo {
	t.Helper()
	st, err := imgfs.Create(filepath.Join(t.TempDir(), "test.imgfs"), imgfs.Layout{
		Capacity: capacity,
		Thumb:    imgfs.Box{Width: 32, Height: 32},
		Small:    imgfs.Box{Width: 64, Height: 64},
	}, imgfs.Options{})
	if err != nil {
		t.Fatalf("imgfs.Create() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h := New(config.Config{MaxUploadBytes: 1 << 20}, service.New(st, snapshots, log.New(io.Discard, "", 0)))
	e := echo.New()
	e.GET("/imgfs/list", h.List)
	e.GET("/imgfs/read", h.Read)
	e.POST("/imgfs/insert", h.Insert)
	e.GET("/imgfs/delete", h.Delete)
	e.GET("/imgfs/header", h.Header)
	e.POST("/imgfs/snapshot", h.Snapshot)
	return e
}

func serve(e *echo.Echo, method, target string, body []byte) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func listIDs(t *testing.T, e *echo.Echo) []string {
	t.Helper()
	rec := serve(e, http.MethodGet, "/imgfs/list", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var body struct {
		Images []string `json:"Images"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return body.Images
}

func TestHandlers_InsertReadDelete(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t, 4, nil)
	original := jpegBytes(t, 200, 100, 10)

	rec := serve(e, http.MethodPost, "/imgfs/insert?name=pic1", original)
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/index.html" {
		t.Fatalf("insert = %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if got := listIDs(t, e); len(got) != 1 || got[0] != "pic1" {
		t.Fatalf("list = %v", got)
	}

	rec = serve(e, http.MethodGet, "/imgfs/read?res=orig&img_id=pic1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read orig status = %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), original) {
		t.Fatalf("read orig returned %d bytes, want %d", rec.Body.Len(), len(original))
	}
	if rec.Header().Get(echo.HeaderContentType) != "image/jpeg" {
		t.Fatalf("content type = %q", rec.Header().Get(echo.HeaderContentType))
	}
	if rec.Header().Get(echo.HeaderContentLength) != strconv.Itoa(len(original)) {
		t.Fatalf("content length = %q", rec.Header().Get(echo.HeaderContentLength))
	}

	rec = serve(e, http.MethodGet, "/imgfs/read?res=thumb&img_id=pic1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read thumb status = %d", rec.Code)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode thumb: %v", err)
	}
	if format != "jpeg" || cfg.Width != 32 || cfg.Height != 16 {
		t.Fatalf("thumb = %s %dx%d, want jpeg 32x16", format, cfg.Width, cfg.Height)
	}

	rec = serve(e, http.MethodGet, "/imgfs/delete?img_id=pic1", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := listIDs(t, e); len(got) != 0 {
		t.Fatalf("list after delete = %v", got)
	}
	if rec := serve(e, http.MethodGet, "/imgfs/read?res=orig&img_id=pic1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("read after delete status = %d, want 404", rec.Code)
	}
}

func TestHandlers_ErrorStatuses(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t, 1, nil)
	if rec := serve(e, http.MethodPost, "/imgfs/insert?name=a", jpegBytes(t, 8, 8, 1)); rec.Code != http.StatusFound {
		t.Fatalf("seed insert status = %d", rec.Code)
	}

	tests := []struct {
		name   string
		method string
		target string
		body   []byte
		want   int
	}{
		{"missing id", http.MethodGet, "/imgfs/read?res=orig", nil, http.StatusBadRequest},
		{"missing res", http.MethodGet, "/imgfs/read?img_id=a", nil, http.StatusBadRequest},
		{"bad res", http.MethodGet, "/imgfs/read?res=huge&img_id=a", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/imgfs/read?res=orig&img_id=zzz", nil, http.StatusNotFound},
		{"store full", http.MethodPost, "/imgfs/insert?name=b", jpegBytes(t, 8, 8, 2), http.StatusInsufficientStorage},
		{"missing name", http.MethodPost, "/imgfs/insert", []byte("x"), http.StatusBadRequest},
		{"empty body", http.MethodPost, "/imgfs/insert?name=c", nil, http.StatusBadRequest},
		{"too large", http.MethodPost, "/imgfs/insert?name=c", make([]byte, 1<<20+1), http.StatusRequestEntityTooLarge},
		{"delete unknown", http.MethodGet, "/imgfs/delete?img_id=zzz", nil, http.StatusNotFound},
		{"snapshots off", http.MethodPost, "/imgfs/snapshot", nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandlers_DuplicateAndUndecodable(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t, 4, nil)
	img := jpegBytes(t, 8, 8, 3)
	if rec := serve(e, http.MethodPost, "/imgfs/insert?name=a", img); rec.Code != http.StatusFound {
		t.Fatalf("insert status = %d", rec.Code)
	}
	if rec := serve(e, http.MethodPost, "/imgfs/insert?name=a", jpegBytes(t, 8, 8, 200)); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}
	if rec := serve(e, http.MethodPost, "/imgfs/insert?name=b", []byte("0123456789")); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("undecodable status = %d, want 422", rec.Code)
	}
}

func TestHandlers_HeaderAndSnapshot(t *testing.T) {
	t.Parallel()
	snapshots, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	e := newTestEcho(t, 4, snapshots)

	rec := serve(e, http.MethodGet, "/imgfs/header", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("header status = %d", rec.Code)
	}
	var hdr map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &hdr); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if hdr["name"] != imgfs.StoreName || hdr["maxImages"] != float64(4) || hdr["thumbnail"] != "32x32" {
		t.Fatalf("header = %v", hdr)
	}

	rec = serve(e, http.MethodPost, "/imgfs/snapshot", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("snapshot status = %d: %s", rec.Code, rec.Body.String())
	}
	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap["key"] == "" || snap["reused"] != false {
		t.Fatalf("snapshot = %v", snap)
	}
}
