// internal/httpserver/ws.go
//
// Per-connection protocol loop.
//
// One goroutine owns each arena connection end to end: mint a session id
// and slug through the write-behind queue, publish the fresh session state,
// then serve frames until the inactivity deadline fires or the connection
// dies. All protocol decisions happen in the arena state machine; this file
// only moves frames and re-publishes state.
//
// Error policy (per request):
//   - read deadline expired      → send `timeout`, close (always fatal)
//   - undecodable frame          → send `error`, keep serving
//   - negative protocol outcome  → normal response frame, keep serving
//   - hard dispatch error        → send `error`, close (contract violation)
//
// No registry cleanup happens on exit: the session must stay visible so a
// future connection can reconnect to it.

package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pashneal/stourney-platform/internal/arena"
)

// writeWait bounds a single response write to the peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bot runners connect from anywhere; the protocol authenticates them.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the request and runs the connection loop to completion.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.serveConn(conn)
}

func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	clog := log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	// Establishment: mint the session id and its slug through the queue.
	// Both are reply-bearing; the idle timeout doubles as the await bound.
	ctx, cancel := context.WithTimeout(context.Background(), s.idleTimeout)
	id, err := s.queue.NewSession(ctx)
	if err == nil {
		_, err = s.queue.Alias(ctx, id)
	}
	cancel()
	if err != nil {
		clog.Error().Err(err).Msg("session establishment failed")
		_ = s.writeFrame(conn, arena.Error("could not establish session"))
		return
	}

	st := arena.NewSessionState(id)
	s.reg.PutSession(st)
	clog = clog.With().Str("session", id.String()).Logger()
	clog.Info().Msg("arena connection established")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				clog.Info().Msg("connection idle past deadline")
				_ = s.writeFrame(conn, arena.Timeout())
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				clog.Warn().Err(err).Msg("connection read failed")
			}
			return
		}

		req, err := arena.DecodeRequest(data)
		if err != nil {
			// Malformed input is contained to this one message.
			if werr := s.writeFrame(conn, arena.Error(err.Error())); werr != nil {
				clog.Warn().Err(werr).Msg("write error frame")
				return
			}
			continue
		}

		reqCtx, cancel := context.WithTimeout(context.Background(), s.idleTimeout)
		resp, next, err := s.machine.Transition(reqCtx, st, req)
		cancel()
		if err != nil {
			clog.Warn().Err(err).Str("request", string(req.Type)).Msg("dispatch error, closing connection")
			_ = s.writeFrame(conn, arena.Error(err.Error()))
			return
		}
		st = next

		if err := s.writeFrame(conn, resp); err != nil {
			clog.Warn().Err(err).Msg("write response")
			return
		}
		s.reg.PutSession(st)
	}
}

// writeFrame sends one response under the write deadline.
func (s *Server) writeFrame(conn *websocket.Conn, resp arena.Response) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(resp)
}
