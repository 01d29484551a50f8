package web

import (
	"bytes"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soypat/stlview/internal/session"
	"github.com/soypat/stlview/mesh"
	"github.com/soypat/stlview/scene"
)

const sampleSTL = `solid sample
  facet normal 0 0 -1
    outer loop
      vertex 0 0 0
      vertex 0 1 0
      vertex 1 0 0
    endloop
  endfacet
  facet normal 0 -1 0
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 0 1
    endloop
  endfacet
  facet normal -1 0 0
    outer loop
      vertex 0 0 0
      vertex 0 0 1
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0.577 0.577 0.577
    outer loop
      vertex 1 0 0
      vertex 0 1 0
      vertex 0 0 1
    endloop
  endfacet
endsolid sample
`

const uploadSTL = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`

type testServer struct {
	*Server
	tmpDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "sample.stl")
	if err := os.WriteFile(defaultPath, []byte(sampleSTL), 0644); err != nil {
		t.Fatal(err)
	}
	def, err := mesh.Decode(defaultPath)
	if err != nil {
		t.Fatal(err)
	}
	tmpDir := filepath.Join(dir, "uploads")
	if err := os.Mkdir(tmpDir, 0755); err != nil {
		t.Fatal(err)
	}
	layout := scene.DefaultLayout()
	layout.Width, layout.Height, layout.Supersample = 64, 48, 1
	return &testServer{
		Server: NewServer(session.NewStore(def), Options{
			Layout:      layout,
			DefaultPath: defaultPath,
			TempDir:     tmpDir,
		}),
		tmpDir: tmpDir,
	}
}

// client keeps the session cookie between requests.
type client struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) upload(name, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("mesh", name)
	if err != nil {
		c.t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) control(name, value string) *httptest.ResponseRecorder {
	form := url.Values{"name": {name}, "value": {value}}
	req := httptest.NewRequest(http.MethodPost, "/control", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) scene() *scene.Scene {
	c.t.Helper()
	rec := c.do(httptest.NewRequest(http.MethodGet, "/scene.json", nil))
	if rec.Code != http.StatusOK {
		c.t.Fatalf("scene.json: status %d", rec.Code)
	}
	var sc scene.Scene
	if err := json.NewDecoder(rec.Body).Decode(&sc); err != nil {
		c.t.Fatal(err)
	}
	return &sc
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, h: srv}
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if c.cookie == nil {
		t.Fatal("no session cookie set")
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<option value="lightpink" selected>`,
		`name="opacity" type="range" min="0" max="1" step="0.05" value="1.00"`,
		`name="eye_x" type="number" step="0.1" value="-1.2"`,
		"sample: 4 triangles",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if rec := c.do(httptest.NewRequest(http.MethodGet, "/nope", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: status %d", rec.Code)
	}
}

func TestControl(t *testing.T) {
	c := &client{t: t, h: newTestServer(t)}
	if rec := c.control(scene.ControlOpacity, "0.3"); rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	sc := c.scene()
	want := scene.DefaultConfig()
	if sc.Opacity != 0.3 {
		t.Errorf("opacity not applied: %g", sc.Opacity)
	}
	if sc.Lighting.Ambient != want.Ambient || sc.Lighting.Diffuse != want.Diffuse ||
		sc.Lighting.Roughness != want.Roughness || sc.Lighting.Specular != want.Specular ||
		sc.Eye != want.Eye || sc.Color != "#FFB6C1" {
		t.Errorf("other values changed: %+v", sc)
	}
	if rec := c.control("zoom", "1"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown control: status %d", rec.Code)
	}
	if rec := c.do(httptest.NewRequest(http.MethodGet, "/control", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /control: status %d", rec.Code)
	}
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, h: srv}
	rec := c.upload("tri.stl", uploadSTL)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var info meshInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Triangles != 1 || !info.Uploaded || info.Name != "tri.stl" {
		t.Errorf("unexpected mesh info %+v", info)
	}
	sc := c.scene()
	if len(sc.I) != 1 || sc.I[0] != 0 || sc.J[0] != 1 || sc.K[0] != 2 {
		t.Errorf("scene does not show upload: i=%v j=%v k=%v", sc.I, sc.J, sc.K)
	}
	assertNoStagedFiles(t, srv.tmpDir)

	// A fresh session without cookie gets the default mesh back.
	other := &client{t: t, h: srv}
	if got := len(other.scene().I); got != 4 {
		t.Errorf("new session shows %d triangles, want default 4", got)
	}

	// Reverting within the session.
	if rec := c.do(httptest.NewRequest(http.MethodDelete, "/upload", nil)); rec.Code != http.StatusOK {
		t.Fatalf("DELETE status %d", rec.Code)
	}
	if got := len(c.scene().I); got != 4 {
		t.Errorf("reset session shows %d triangles, want 4", got)
	}
}

func TestUploadRejected(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, h: srv}
	c.control(scene.ControlColor, "gold")
	for _, test := range []struct {
		name, content string
		status        int
	}{
		{"corrupt.stl", "definitely not a mesh", http.StatusUnprocessableEntity},
		{"empty.stl", "", http.StatusUnprocessableEntity},
		{"model.obj", "v 0 0 0\n", http.StatusBadRequest},
	} {
		rec := c.upload(test.name, test.content)
		if rec.Code != test.status {
			t.Errorf("%s: got status %d, want %d", test.name, rec.Code, test.status)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error == "" {
			t.Errorf("%s: expected error message, got %v", test.name, err)
		}
	}
	sc := c.scene()
	if len(sc.I) != 4 || sc.Color != "#FFD700" {
		t.Error("failed uploads changed session state")
	}
	assertNoStagedFiles(t, srv.tmpDir)
}

func TestRenderPNG(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, h: srv}
	rec := c.do(httptest.NewRequest(http.MethodGet, "/render.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %s", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("got size %v, want 64x48", img.Bounds())
	}
}

func TestWebSocket(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(controlMessage{Name: scene.ControlSpecular, Value: "0.8"}); err != nil {
		t.Fatal(err)
	}
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if typ != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d: %s", typ, data)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("frame is not a PNG: %v", err)
	}

	if err := conn.WriteJSON(controlMessage{Name: scene.ControlOpacity, Value: "x"}); err != nil {
		t.Fatal(err)
	}
	typ, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if typ != websocket.TextMessage {
		t.Fatalf("expected text frame for invalid control, got %d", typ)
	}
	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.Error == "" {
		t.Errorf("bad error frame %q", data)
	}
}

func TestWebSocketKeepsSessionAlive(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("upgrade response carries no session cookie")
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)
	if err := conn.WriteJSON(controlMessage{Name: scene.ControlOpacity, Value: "0.3"}); err != nil {
		t.Fatal(err)
	}
	if typ, data, err := conn.ReadMessage(); err != nil || typ != websocket.BinaryMessage {
		t.Fatalf("expected render frame, got type %d %q: %v", typ, data, err)
	}
	if n := srv.store.Expire(100 * time.Millisecond); n != 0 {
		t.Fatalf("expired %d sessions right after websocket activity", n)
	}

	// The same session answers plain HTTP requests.
	c := &client{t: t, h: srv, cookie: cookie}
	if sc := c.scene(); sc.Opacity != 0.3 {
		t.Errorf("HTTP request sees opacity %g, want 0.3", sc.Opacity)
	}
	if srv.store.Len() != 1 {
		t.Errorf("got %d sessions, want 1", srv.store.Len())
	}

	srv.store.Delete(id)
	if err := conn.WriteJSON(controlMessage{Name: "render"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, closeSessionExpired) {
		t.Errorf("expected session expired close, got %v", err)
	}
}

func assertNoStagedFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d staged uploads left in %s", len(entries), dir)
	}
}
