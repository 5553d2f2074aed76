// Package client implements the developer-machine half of the relay:
// the connector (C6) that holds open an authenticated WebSocket to
// the server, and the forwarder (C7) that replays received envelopes
// against a local HTTP origin.
package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
	"github.com/Ap3pp3rs94/hookhub/internal/errs"
)

// ReconnectDelay is the constant (non-exponential) wait between
// connect attempts. This is a contract, not an implementation
// liberty: spec.md requires exactly 5 seconds, cancellable by
// shutdown.
const ReconnectDelay = 5 * time.Second

// KeepAliveInterval is how often the connector pings an idle
// connection.
const KeepAliveInterval = 20 * time.Second

// keepAlivePayload is the fixed 5-byte ping payload.
var keepAlivePayload = []byte{5, 4, 3, 2, 1}

// errGracefulClose distinguishes a clean remote-initiated Close frame
// (the server deliberately ending the session) from a transport
// error. Only the latter triggers reconnection; a graceful close
// stops the connector, matching spec.md §4.6's "inbound close → exit
// to Stopped" read literally, while abrupt disconnects (a server
// process dying without sending a Close frame) and any other close
// code (including 1012 service restart, which a server sends to its
// sessions when it shuts down on SIGINT) fall through the error
// table's "WebSocket read/write error → reconnect" row instead.
var errGracefulClose = errors.New("client: remote closed gracefully")

// OnEnvelope is invoked for every decoded inbound envelope before it
// is handed to the forwarder — the collaborator hook spec.md §9 calls
// on_envelope_received. May be nil.
type OnEnvelope func(envelope.Envelope)

// Connector holds the connection parameters and collaborators needed
// to run one client session loop, reconnecting as needed.
type Connector struct {
	Remote  *url.URL
	Secret  string
	Version string

	Forwarder  *Forwarder
	OnEnvelope OnEnvelope

	Log zerolog.Logger

	dialer *websocket.Dialer
	state  State
}

// State returns the connector's current lifecycle state. Safe to call
// from another goroutine for observability; not synchronized, so it
// is best-effort under concurrent Run calls (Run is meant to be
// called once per Connector).
func (c *Connector) State() State {
	return c.state
}

func (c *Connector) setState(s State) {
	c.state = s
	c.Log.Debug().Str("state", string(s)).Msg("connector state transition")
}

// logDisposition logs err against code's registered disposition, so
// every terminal loop event carries the same where/retryable/
// disposition fields regardless of call site.
func (c *Connector) logDisposition(code errs.Code, err error) {
	meta, _ := errs.Lookup(code)
	event := c.Log.Warn().
		Str("code", string(code)).
		Str("where", meta.Where).
		Bool("retryable", meta.Retryable).
		Str("disposition", meta.Disposition)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("connector event")
}

// Run drives the Idle → Connecting → Connected → Reconnecting →
// Stopped state machine until ctx is cancelled. The first connect
// attempt happens immediately; every subsequent attempt waits exactly
// ReconnectDelay, cancellable by ctx.
func (c *Connector) Run(ctx context.Context) error {
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	c.setState(StateIdle)
	if scheme := c.Remote.Scheme; scheme != "ws" && scheme != "wss" {
		err := fmt.Errorf("client: remote scheme %q must be ws or wss", scheme)
		c.logDisposition(errs.CodeURLSchemeInvalid, err)
		c.setState(StateStopped)
		return err
	}
	for {
		if ctx.Err() != nil {
			c.setState(StateStopped)
			c.logDisposition(errs.CodeShutdownSignalled, nil)
			return nil
		}

		c.setState(StateConnecting)
		conn, err := c.connect()
		if err != nil {
			c.logDisposition(errs.CodeTransportRefused, err)
			c.setState(StateReconnecting)
			if !c.waitForRetry(ctx) {
				c.setState(StateStopped)
				return nil
			}
			continue
		}

		c.setState(StateConnected)
		c.Log.Info().Msg("connected")
		err = c.runSession(ctx, conn)
		conn.Close()

		if errors.Is(err, errGracefulClose) {
			c.setState(StateStopped)
			c.Log.Info().Msg("server closed session, stopping")
			return nil
		}
		if ctx.Err() != nil {
			c.setState(StateStopped)
			return nil
		}
		if err != nil {
			c.Log.Warn().Err(err).Msg("session ended, reconnecting")
		}
		c.setState(StateReconnecting)
		if !c.waitForRetry(ctx) {
			c.setState(StateStopped)
			return nil
		}
	}
}

// waitForRetry waits ReconnectDelay, cancellable by ctx. It returns
// false if ctx was cancelled during the wait.
func (c *Connector) waitForRetry(ctx context.Context) bool {
	timer := time.NewTimer(ReconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Connector) connect() (*websocket.Conn, error) {
	scheme := c.Remote.Scheme
	if scheme != "ws" && scheme != "wss" {
		err := fmt.Errorf("client: remote scheme %q must be ws or wss", scheme)
		c.logDisposition(errs.CodeURLSchemeInvalid, err)
		return nil, err
	}
	u := *c.Remote
	u.Path = "/__hookhub__/"

	header := http.Header{}
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.Version+":"+c.Secret)))

	conn, resp, err := c.dialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("client: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

type wireFrame struct {
	messageType int
	data        []byte
	err         error
}

// runSession is the receive loop's cooperative select: inbound frame,
// keep-alive timer, shutdown signal.
func (c *Connector) runSession(ctx context.Context, conn *websocket.Conn) error {
	frames := make(chan wireFrame, 1)
	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			frames <- wireFrame{messageType: mt, data: data, err: err}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-frames:
			if frame.err != nil {
				var closeErr *websocket.CloseError
				if errors.As(frame.err, &closeErr) &&
					(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
					return errGracefulClose
				}
				c.logDisposition(errs.CodeWebSocketError, frame.err)
				return frame.err
			}
			switch frame.messageType {
			case websocket.BinaryMessage:
				env, err := envelope.Decode(frame.data)
				if err != nil {
					err = fmt.Errorf("client: decode failed: %w", err)
					c.logDisposition(errs.CodeDecodeFailure, err)
					return err
				}
				if c.OnEnvelope != nil {
					c.OnEnvelope(env)
				}
				if c.Forwarder != nil {
					go c.Forwarder.Forward(env)
				}
			default:
				// text frames are not part of the protocol; ignore.
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, keepAlivePayload, time.Now().Add(5*time.Second)); err != nil {
				err = fmt.Errorf("client: ping failed: %w", err)
				c.logDisposition(errs.CodeWebSocketError, err)
				return err
			}

		case <-ctx.Done():
			c.logDisposition(errs.CodeShutdownSignalled, nil)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil
		}
	}
}
