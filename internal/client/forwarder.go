package client

import (
	"bytes"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
	"github.com/Ap3pp3rs94/hookhub/internal/errs"
)

// Forwarder implements C7: for each received envelope, rebuild and
// issue an HTTP request against the local origin. A single shared
// client is reused across forwards so connections are pooled.
type Forwarder struct {
	local  *url.URL
	client *http.Client
	log    zerolog.Logger
}

const (
	connectTimeout = 10 * time.Second
	readTimeout    = 30 * time.Second
)

// NewForwarder builds a Forwarder targeting local (path forced to
// "/" — per-envelope paths replace it on every forward).
func NewForwarder(local *url.URL, log zerolog.Logger) *Forwarder {
	base := *local
	base.Path = "/"
	base.RawQuery = ""

	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return &Forwarder{
		local:  &base,
		client: &http.Client{Transport: transport, Timeout: connectTimeout + readTimeout},
		log:    log,
	}
}

// Forward rebuilds env as an HTTP request against the local origin
// and issues it. It never retries and never returns an error to the
// caller — a failed forward is a logged observation, not a protocol
// event. Callers launch this concurrently with subsequent envelopes;
// Forward itself is synchronous so the caller controls concurrency.
func (f *Forwarder) Forward(env envelope.Envelope) {
	target := *f.local
	if ref, err := url.Parse(env.FullPath); err == nil {
		target.Path = ref.Path
		target.RawQuery = ref.RawQuery
	} else {
		target.Path = env.FullPath
	}

	req, err := http.NewRequest(env.Method, target.String(), bytes.NewReader(env.Body))
	if err != nil {
		f.logForwardFailure(env, err)
		return
	}
	if major, minor, verr := env.Version.Rebuild(); verr == nil {
		req.ProtoMajor, req.ProtoMinor = major, minor
		req.Proto = env.Version.String()
	}
	// http.Header is a map, so only per-name order (not cross-name
	// order) survives round-tripping through net/http — the same
	// limitation the capture side accepts.
	for _, h := range env.Headers {
		req.Header.Add(h.Name, h.Value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logForwardFailure(env, err)
		return
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)
	f.log.Info().
		Str("method", env.Method).
		Str("fullpath", env.FullPath).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("forwarded")
}

// logForwardFailure logs a failed forward against CodeForwardError's
// registered disposition: logged and discarded, never retried.
func (f *Forwarder) logForwardFailure(env envelope.Envelope, err error) {
	meta, _ := errs.Lookup(errs.CodeForwardError)
	f.log.Warn().
		Err(err).
		Str("code", string(errs.CodeForwardError)).
		Str("where", meta.Where).
		Str("disposition", meta.Disposition).
		Str("method", env.Method).
		Str("fullpath", env.FullPath).
		Msg("forward failed")
}
