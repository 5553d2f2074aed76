package server

import (
	"fmt"
	"net/http"

	"github.com/Ap3pp3rs94/hookhub/internal/errs"
)

// requireAuth implements C5: HTTP Basic auth used as a version
// handshake. Username carries the client's advertised protocol
// version, password carries the shared secret. Both checks run
// before the WebSocket upgrade completes; no session state is
// allocated on rejection.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || password != s.secret {
			s.logRejection(r, "missing or wrong secret")
			w.Header().Set("WWW-Authenticate", `Basic realm="hookhub"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if username != s.version {
			s.logRejection(r, "version mismatch")
			http.Error(w, fmt.Sprintf("Server is running version %s but you are running %s", s.version, username), http.StatusBadRequest)
			return
		}
		next(w, r)
	}
}

// logRejection logs an auth rejection against the shared hookhub error
// registry's disposition for CodeAuthRejected, rather than hand-rolling
// the same fields at each rejection site.
func (s *Server) logRejection(r *http.Request, reason string) {
	meta, _ := errs.Lookup(errs.CodeAuthRejected)
	s.log.Warn().
		Str("code", string(errs.CodeAuthRejected)).
		Str("where", meta.Where).
		Str("disposition", meta.Disposition).
		Str("remote", remoteAddr(r)).
		Str("reason", reason).
		Msg("auth rejected")
}
