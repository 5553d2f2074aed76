package history

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestReplayReissuesStoredRequestAgainstItsLocal(t *testing.T) {
	received := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r.URL.Path + "|" + string(body)
	}))
	defer ts.Close()

	item := Item{
		ReceivedAt: time.Now(),
		Local:      ts.URL,
		Request: Request{
			Method:   "POST",
			FullPath: "/inbound?id=9",
			Version:  "HTTP/1.1",
			Body:     []byte(`{"replayed":true}`),
		},
	}

	if err := Replay(item, zerolog.Nop()); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	select {
	case got := <-received:
		if got != `/inbound|{"replayed":true}` {
			t.Fatalf("got %q, want /inbound|{\"replayed\":true}", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("local origin was never hit")
	}
}

func TestReplayRejectsInvalidLocalURL(t *testing.T) {
	item := Item{Local: "://not-a-url"}
	if err := Replay(item, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid local URL")
	}
}
