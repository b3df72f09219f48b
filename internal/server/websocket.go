package server

import (
	"context"
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	"net/http"
	"time"
)

const writeTimeout = 10 * time.Second

// handleWebsocket answers every text frame with exactly one frame until the
// client goes away.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxPayloadSize)
	logger := s.logger.WithField("remote", r.RemoteAddr)
	logger.Debug("websocket connected")

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Info("websocket closed unexpectedly")
			}
			return
		}

		body, err := s.answer(r.Context(), kind, payload)
		if err != nil {
			logger.WithError(err).Error("can't build response")
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err = conn.WriteMessage(websocket.TextMessage, body); err != nil {
			logger.WithError(err).Info("can't write response")
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, kind int, payload []byte) ([]byte, error) {
	start := time.Now()

	if kind != websocket.TextMessage {
		resp := s.engine.Failure(api.ErrorType, catalog.UnsupportedMediaType, "Only text frames are accepted")
		s.metrics.Observe(resp.Type, resp.Errors.Code, time.Since(start))
		return json.Marshal(resp)
	}

	body, resp, err := s.engine.Process(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.metrics.Observe(resp.Type, resp.Errors.Code, time.Since(start))
	return body, nil
}
