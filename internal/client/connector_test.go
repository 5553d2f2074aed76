package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func TestConnectorReconnectsOnServerClose(t *testing.T) {
	var connects int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&connects, 1)
		// force-close immediately to exercise reconnect.
		conn.Close()
	}))
	defer ts.Close()

	remote, _ := url.Parse(ts.URL)
	remote.Scheme = "ws"

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	c := &Connector{
		Remote:  remote,
		Secret:  "s3cr3t",
		Version: "1.0.0",
		Log:     zerolog.Nop(),
	}
	start := time.Now()
	_ = c.Run(ctx)
	elapsed := time.Since(start)

	// One immediate attempt, then another after ReconnectDelay; the
	// deadline is far shorter than ReconnectDelay, so only the first
	// immediate connect can be observed within this window.
	if atomic.LoadInt32(&connects) < 1 {
		t.Fatalf("connects = %d, want at least 1", connects)
	}
	// A force-closed session is a transport error, so Run enters the
	// reconnect wait and returns only when ctx expires; a Run that
	// stopped on the close would return almost at once.
	if elapsed < time.Second {
		t.Fatalf("Run returned after %v, want it to wait to reconnect until the deadline", elapsed)
	}
}

func TestConnectorFirstAttemptIsImmediate(t *testing.T) {
	connected := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case connected <- struct{}{}:
		default:
		}
		<-r.Context().Done()
		conn.Close()
	}))
	defer ts.Close()

	remote, _ := url.Parse(ts.URL)
	remote.Scheme = "ws"

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	c := &Connector{Remote: remote, Secret: "s3cr3t", Version: "1.0.0", Log: zerolog.Nop()}
	go c.Run(ctx)

	select {
	case <-connected:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("connector did not attempt to connect immediately")
	}
}

func TestConnectorRejectsNonWebSocketScheme(t *testing.T) {
	remote, _ := url.Parse("http://example.invalid")
	c := &Connector{Remote: remote, Secret: "s3cr3t", Version: "1.0.0", Log: zerolog.Nop()}
	if _, err := c.connect(); err == nil {
		t.Fatal("expected error for non-ws scheme")
	}
}

func TestConnectorSendsKeepAlivePing(t *testing.T) {
	pinged := make(chan []byte, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.SetPingHandler(func(appData string) error {
			select {
			case pinged <- []byte(appData):
			default:
			}
			return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	remote, _ := url.Parse(ts.URL)
	remote.Scheme = "ws"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &Connector{Remote: remote, Secret: "s3cr3t", Version: "1.0.0", Log: zerolog.Nop()}
	conn, err := c.connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	runDone := make(chan error, 1)
	sessionCtx, sessionCancel := context.WithTimeout(ctx, KeepAliveInterval+500*time.Millisecond)
	defer sessionCancel()
	go func() { runDone <- c.runSession(sessionCtx, conn) }()

	select {
	case data := <-pinged:
		if len(data) != 5 || data[0] != 5 || data[4] != 1 {
			t.Fatalf("ping payload = %v, want [5 4 3 2 1]", data)
		}
	case <-time.After(KeepAliveInterval + time.Second):
		t.Fatal("timed out waiting for keep-alive ping")
	}
}
