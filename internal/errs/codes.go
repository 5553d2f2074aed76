// Package errs maps hookhub's error kinds to their HTTP disposition,
// the way spec.md §7 enumerates them.
package errs

// Code identifies an error kind.
type Code string

const (
	CodeURLSchemeInvalid  Code = "url_scheme_invalid"
	CodeDecodeFailure     Code = "decode_failure"
	CodeEncodeFailure     Code = "encode_failure"
	CodeAuthRejected      Code = "auth_rejected"
	CodeLaggingSubscriber Code = "lagging_subscriber"
	CodeWebSocketError    Code = "websocket_error"
	CodeForwardError      Code = "forward_error"
	CodeTransportRefused  Code = "transport_refused"
	CodeShutdownSignalled Code = "shutdown_signalled"
)

// Meta describes the disposition of a Code.
type Meta struct {
	// HTTPStatus is 0 when the error has no direct HTTP response (it
	// occurs off the request path, e.g. inside the connector loop).
	HTTPStatus  int
	Retryable   bool
	Where       string
	Disposition string
}

var registry = map[Code]Meta{
	CodeURLSchemeInvalid:  {HTTPStatus: 0, Retryable: false, Where: "client startup", Disposition: "fatal, abort"},
	CodeDecodeFailure:     {HTTPStatus: 0, Retryable: true, Where: "client receive", Disposition: "fatal to session, reconnect"},
	CodeEncodeFailure:     {HTTPStatus: 0, Retryable: false, Where: "server send", Disposition: "fatal to session, detach subscriber"},
	CodeAuthRejected:      {HTTPStatus: 401, Retryable: false, Where: "server upgrade", Disposition: "401 or 400, no state allocated"},
	CodeLaggingSubscriber: {HTTPStatus: 0, Retryable: false, Where: "server fan-out", Disposition: "detach session, log warning"},
	CodeWebSocketError:    {HTTPStatus: 0, Retryable: true, Where: "either side", Disposition: "terminate session, client reconnects"},
	CodeForwardError:      {HTTPStatus: 0, Retryable: false, Where: "client forward", Disposition: "log, discard, no retry"},
	CodeTransportRefused:  {HTTPStatus: 0, Retryable: true, Where: "client connect", Disposition: "log, wait 5s, retry"},
	CodeShutdownSignalled: {HTTPStatus: 0, Retryable: false, Where: "either side", Disposition: "signal shutdown, drain, exit 0"},
}

// Lookup returns the disposition metadata for code.
func Lookup(code Code) (Meta, bool) {
	m, ok := registry[code]
	return m, ok
}
