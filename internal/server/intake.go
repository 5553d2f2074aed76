package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
)

// handleIntake implements C3: the default handler for every path not
// under the reserved /__hookhub__ prefix, for every HTTP method. It
// never fails except on a malformed body read; it always answers
// 200 OK with an empty body, whether or not any subscriber is
// attached.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	version, err := envelope.CaptureVersion(r.ProtoMajor, r.ProtoMinor)
	if err != nil {
		// Unrecognised protocol: treat as the closest supported
		// version rather than fail the whole capture.
		version = envelope.Version11
	}

	// net/http stores headers in a map, so relative order between
	// distinct header names is not recoverable here; values for a
	// repeated header name are preserved in receipt order, which is
	// what the duplicate-header invariant actually depends on.
	headers := make([]envelope.Header, 0, len(r.Header))
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		if envelope.IsReservedHeader(lower) {
			continue
		}
		for _, v := range values {
			headers = append(headers, envelope.Header{Name: name, Value: v})
		}
	}

	env := envelope.Envelope{
		Method:   r.Method,
		FullPath: r.RequestURI,
		Version:  version,
		Headers:  headers,
		Body:     body,
	}

	delivered := s.bus.Publish(env)
	s.log.Info().
		Str("method", env.Method).
		Str("fullpath", env.FullPath).
		Int("delivered", delivered).
		Msg("captured request")

	w.WriteHeader(http.StatusOK)
}
