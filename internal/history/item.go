// Package history persists captured envelopes as they pass through a
// connected client, one JSON file per item, so a developer can list,
// inspect, and replay past deliveries.
package history

import (
	"time"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
)

// Item is one stored delivery: the envelope as received, the local
// origin it was (or will be) forwarded to, and when it arrived. ID is
// derived from the backing file name, not stored in the file itself.
type Item struct {
	ID         string    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
	Local      string    `json:"local"`
	Request    Request   `json:"request"`
}

// Request is the JSON-friendly projection of an envelope.Envelope —
// the wire type uses a custom msgpack array encoding that isn't a
// sensible JSON shape, so history keeps its own mirror.
type Request struct {
	Method   string   `json:"method"`
	FullPath string   `json:"fullpath"`
	Version  string   `json:"version"`
	Headers  []Header `json:"headers"`
	Body     []byte   `json:"body"`
}

// Header mirrors envelope.Header for JSON storage.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FromEnvelope projects an envelope.Envelope into its storage form.
func FromEnvelope(env envelope.Envelope) Request {
	headers := make([]Header, len(env.Headers))
	for i, h := range env.Headers {
		headers[i] = Header{Name: h.Name, Value: h.Value}
	}
	return Request{
		Method:   env.Method,
		FullPath: env.FullPath,
		Version:  env.Version.String(),
		Headers:  headers,
		Body:     env.Body,
	}
}

// Envelope reconstructs an envelope.Envelope from the stored request,
// for replay. The version string is parsed back to the nearest
// envelope.Version; an unparseable value falls back to Version11.
func (r Request) Envelope() envelope.Envelope {
	headers := make([]envelope.Header, len(r.Headers))
	for i, h := range r.Headers {
		headers[i] = envelope.Header{Name: h.Name, Value: h.Value}
	}
	return envelope.Envelope{
		Method:   r.Method,
		FullPath: r.FullPath,
		Version:  parseVersion(r.Version),
		Headers:  headers,
		Body:     r.Body,
	}
}

func parseVersion(s string) envelope.Version {
	switch s {
	case "HTTP/0.9":
		return envelope.Version09
	case "HTTP/1.0":
		return envelope.Version10
	case "HTTP/2.0":
		return envelope.Version20
	case "HTTP/3.0":
		return envelope.Version30
	default:
		return envelope.Version11
	}
}
