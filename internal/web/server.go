// Package web serves the single page viewer over HTTP.
package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/soypat/stlview/internal/logger"
	"github.com/soypat/stlview/internal/session"
	"github.com/soypat/stlview/internal/upload"
	"github.com/soypat/stlview/mesh"
	"github.com/soypat/stlview/scene"
	"go.uber.org/zap"
)

const sessionCookie = "stlview_session"

// Options configures a Server.
type Options struct {
	Layout      scene.Layout
	DefaultPath string
	TempDir     string
}

// Server is the viewer's HTTP handler.
type Server struct {
	store    *session.Store
	opts     Options
	mux      *http.ServeMux
	page     *template.Template
	upgrader websocket.Upgrader
}

// NewServer returns a handler serving sessions from store.
func NewServer(store *session.Store, opts Options) *Server {
	s := &Server{
		store: store,
		opts:  opts,
		mux:   http.NewServeMux(),
		page:  template.Must(template.New("index").Parse(pageTemplate)),
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.HandleFunc("/control", s.handleControl)
	s.mux.HandleFunc("/render.png", s.handleRender)
	s.mux.HandleFunc("/scene.json", s.handleScene)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	logger.Log.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// session returns the caller's session, starting a new one and setting
// the cookie when the request carries no live session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			if sess, ok := s.store.Get(id); ok {
				return sess
			}
		}
	}
	sess := s.store.New()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return sess
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess := s.session(w, r)
	var b bytes.Buffer
	if err := s.page.Execute(&b, newPageData(sess.Snapshot(), s.opts.Layout)); err != nil {
		logger.Log.Error("executing page template", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	b.WriteTo(w)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	switch r.Method {
	case http.MethodPost:
	case http.MethodDelete:
		sess.Reset(s.store.DefaultMesh())
		writeJSON(w, http.StatusOK, newMeshInfo(sess.Snapshot()))
		return
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodDelete)
		return
	}
	file, header, err := r.FormFile("mesh")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "reading upload"))
		return
	}
	defer file.Close()
	m, err := s.decodeUpload(file, header.Filename)
	if err != nil {
		status := http.StatusInternalServerError
		var decodeErr *mesh.DecodeError
		switch {
		case errors.Is(err, upload.ErrExtension):
			status = http.StatusBadRequest
		case errors.As(err, &decodeErr):
			status = http.StatusUnprocessableEntity
		}
		logger.Log.Warn("upload rejected",
			zap.Stringer("session", sess.ID),
			zap.String("file", header.Filename),
			zap.Error(err),
		)
		writeError(w, status, err)
		return
	}
	sess.Replace(m)
	logger.Log.Info("mesh uploaded",
		zap.Stringer("session", sess.ID),
		zap.String("file", header.Filename),
		zap.Int("triangles", len(m.Triangles)),
	)
	writeJSON(w, http.StatusOK, newMeshInfo(sess.Snapshot()))
}

// decodeUpload stages the upload on disk, decodes it and removes the
// staged file before returning.
func (s *Server) decodeUpload(file io.Reader, filename string) (*mesh.Mesh, error) {
	src, err := upload.Acquire(file, filename, s.opts.DefaultPath, s.opts.TempDir)
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := src.Close(); err != nil {
			logger.Log.Error("removing staged upload", zap.String("path", path), zap.Error(err))
		}
	}(src.Path)
	m, err := mesh.Decode(src.Path)
	if err != nil {
		return nil, err
	}
	m.Name = src.Name
	return m, nil
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess := s.session(w, r)
	if err := sess.Apply(r.FormValue("name"), r.FormValue("value")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot().Config)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess := s.session(w, r)
	b, err := s.renderPNG(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(b)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.session(w, r).Render(s.opts.Layout))
}

func (s *Server) renderPNG(sess *session.Session) ([]byte, error) {
	start := time.Now()
	sc := sess.Render(s.opts.Layout)
	var b bytes.Buffer
	if err := scene.EncodePNG(&b, sc.Rasterize()); err != nil {
		return nil, errors.Wrap(err, "encoding render")
	}
	logger.Log.Debug("rendered",
		zap.Stringer("session", sess.ID),
		zap.Int("triangles", len(sc.I)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b.Bytes(), nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("writing response", zap.Error(err))
	}
}
