package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/gallery/internal/handler"
	"github.com/msomdec/gallery/internal/repository/sqlite"
	"github.com/msomdec/gallery/internal/service"
	"github.com/msomdec/gallery/internal/transform"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	return newTestDeps(t).Auth
}

func newTestDeps(t *testing.T) handler.Deps {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	files := db.FileStore()
	editions := service.NewEditionService(db.Editions(), files, transform.NewEngine(), service.EditionConfig{
		TransformTimeout:        5 * time.Second,
		MaxConcurrentTransforms: 2,
	})
	return handler.Deps{
		Auth:         service.NewAuthService(db.Users(), testJWTSecret, 4, time.Hour),
		Assets:       service.NewAssetService(db.Assets(), files, editions),
		Editions:     editions,
		LoginLimiter: service.NewTokenBucket(ctx, 10, 100),
		EditLimiter:  service.NewTokenBucket(ctx, 10, 100),
		TokenTTL:     time.Hour,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, handler.Deps) {
	t.Helper()
	deps := newTestDeps(t)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, deps)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, deps
}

// userToken registers a user through the service and returns a bearer token.
func userToken(t *testing.T, auth *service.AuthService, email string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := auth.Register(ctx, email, "Test User", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := auth.Login(ctx, email, "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return token
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *apiClient) json(method, path string, body any) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	return c.do(method, path, "application/json", r)
}

func (c *apiClient) upload(fileName, contentType string, data []byte) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		c.t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()
	return c.do(http.MethodPost, "/api/assets", mw.FormDataContentType(), &buf)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
