package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
	"github.com/Ap3pp3rs94/hookhub/internal/errs"
	"github.com/Ap3pp3rs94/hookhub/internal/fanout"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleSubscribe implements C4: it upgrades an authenticated
// connection to a WebSocket, subscribes to the fan-out bus, and pumps
// envelopes out while arbitrating inbound control frames.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	remote := remoteAddr(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", remote).Msg("upgrade failed")
		return
	}
	s.log.Info().Str("remote", remote).Msg("Session started")

	// gorilla/websocket answers Ping with a Pong of the same payload
	// via its default handler; this override only adds logging.
	conn.SetPingHandler(func(appData string) error {
		s.log.Debug().Str("remote", remote).Msg("ping received")
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	sub := s.bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(s.shutdown)
	defer cancel()

	inbound := make(chan wsFrame, 1)
	go readPump(conn, inbound)

	s.sessionLoop(ctx, conn, sub, inbound, remote)

	// On server shutdown the session closes with 1012 (service
	// restart) rather than a normal closure, so the client reconnects
	// instead of stopping.
	closeCode := websocket.CloseNormalClosure
	if s.shutdown.Err() != nil {
		closeCode = websocket.CloseServiceRestart
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, ""), time.Now().Add(time.Second))
	_ = conn.Close()
	s.log.Info().Str("remote", remote).Msg("Session finished")
}

// remoteAddr honours the first entry of X-Forwarded-For when present,
// otherwise falls back to the TCP peer address.
func remoteAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	return r.RemoteAddr
}

type wsFrame struct {
	messageType int
	data        []byte
	err         error
}

// readPump forwards inbound frames to out so the session loop can
// select over both it and the fan-out subscription. It exits on the
// first read error (including a clean close), matching a single
// terminal wsFrame.
func readPump(conn *websocket.Conn, out chan<- wsFrame) {
	for {
		mt, data, err := conn.ReadMessage()
		out <- wsFrame{messageType: mt, data: data, err: err}
		if err != nil {
			return
		}
	}
}

// sessionLoop is C4's cooperative select: inbound frame vs. next
// envelope from the subscription. Ping/Pong and Close are handled by
// gorilla/websocket's control-frame callbacks before ReadMessage
// returns, so any frame reaching inbound is a data frame (ignored —
// the protocol has the client sending none) or a terminal error
// (remote close or a read failure). Each outbound envelope is
// encoded and sent as one binary frame; a write error terminates the
// session.
func (s *Server) sessionLoop(ctx context.Context, conn *websocket.Conn, sub *fanout.Subscription, inbound <-chan wsFrame, remote string) {
	for {
		select {
		case frame := <-inbound:
			if frame.err != nil {
				if websocket.IsUnexpectedCloseError(frame.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logDisposition(errs.CodeWebSocketError, remote, frame.err)
				}
				return
			}
			// text/binary frames from the client are not part of the
			// protocol; ignore and keep pumping.

		case env, ok := <-sub.Chan():
			if !ok {
				s.logDisposition(errs.CodeLaggingSubscriber, remote, nil)
				return
			}
			if err := s.sendEnvelope(conn, env); err != nil {
				s.logDisposition(errs.CodeEncodeFailure, remote, err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) sendEnvelope(conn *websocket.Conn, env envelope.Envelope) error {
	b, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

// logDisposition logs a session-ending event against code's
// registered disposition, so every terminal session event carries the
// same where/retryable/disposition fields regardless of call site.
func (s *Server) logDisposition(code errs.Code, remote string, err error) {
	meta, _ := errs.Lookup(code)
	event := s.log.Warn().
		Str("code", string(code)).
		Str("where", meta.Where).
		Bool("retryable", meta.Retryable).
		Str("disposition", meta.Disposition).
		Str("remote", remote)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("session ended")
}
