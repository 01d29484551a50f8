package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soypat/stlview/internal/logger"
	"github.com/soypat/stlview/internal/session"
	"go.uber.org/zap"
)

// closeSessionExpired tells the page its session ended while the socket was
// open. The page reloads to pick up a fresh session and cookie.
const closeSessionExpired = 4000

// controlMessage is sent by the page whenever a sidebar control changes.
type controlMessage struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// handleWebSocket applies control changes as they arrive and answers each
// with a binary PNG frame of the new render, or a text frame carrying an
// errorResponse. A "render" message re-renders without changing anything.
// Every message counts as session activity.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	// The upgrade writes its own response, so a new session cookie must be
	// passed along explicitly.
	var header http.Header
	if cookies := w.Header()["Set-Cookie"]; len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		logger.Log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	logger.Log.Debug("websocket connected", zap.Stringer("session", sess.ID))

	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warn("websocket read", zap.Stringer("session", sess.ID), zap.Error(err))
			}
			return
		}
		live, ok := s.store.Get(sess.ID)
		if !ok {
			logger.Log.Debug("websocket session expired", zap.Stringer("session", sess.ID))
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeSessionExpired, "session expired"),
				time.Now().Add(time.Second))
			return
		}
		if err := s.answer(conn, live, msg); err != nil {
			logger.Log.Warn("websocket write", zap.Stringer("session", sess.ID), zap.Error(err))
			return
		}
	}
}

func (s *Server) answer(conn *websocket.Conn, sess *session.Session, msg controlMessage) error {
	if msg.Name != "render" {
		if err := sess.Apply(msg.Name, msg.Value); err != nil {
			return writeTextError(conn, err)
		}
	}
	b, err := s.renderPNG(sess)
	if err != nil {
		return writeTextError(conn, err)
	}
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

func writeTextError(conn *websocket.Conn, err error) error {
	data, merr := json.Marshal(errorResponse{Error: err.Error()})
	if merr != nil {
		return merr
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
