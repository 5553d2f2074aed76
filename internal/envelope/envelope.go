// Package envelope implements the wire format for captured HTTP
// requests: a compact, schema-stable binary encoding shared by the
// server and the client.
package envelope

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// wireFields is the exact arity of the envelope's array encoding.
// Any other arity on decode is treated as version skew and rejected.
const wireFields = 5

// ErrUnknownFields is returned by Decode when the encoded value does
// not have exactly the fields this codec version knows about.
var ErrUnknownFields = errors.New("envelope: unknown wire fields")

// Header is a single ordered (name, value) pair. Duplicates are
// preserved; order is receipt order.
type Header struct {
	Name  string
	Value string
}

// Envelope is a captured HTTP request in transit between the server
// and a connected client. It is immutable once built.
type Envelope struct {
	Method   string
	FullPath string
	Version  Version
	Headers  []Header
	Body     []byte
}

// reservedHeaders are stripped from every envelope at capture time and
// must never round-trip.
var reservedHeaders = map[string]bool{
	"host":       true,
	"origin":     true,
	"connection": true,
}

// IsReservedHeader reports whether name (compared case-insensitively
// by the caller, which should lower-case first) must be stripped from
// a captured envelope.
func IsReservedHeader(lowerName string) bool {
	return reservedHeaders[lowerName]
}

// Encode serialises env to its binary wire form.
func Encode(env Envelope) ([]byte, error) {
	return msgpack.Marshal(&env)
}

// Decode parses the binary wire form produced by Encode. Unknown
// fields (wrong arity at any level) are rejected rather than
// silently ignored, so version skew between the two sides is caught
// at decode time instead of producing a malformed request downstream.
func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// EncodeMsgpack implements msgpack.CustomEncoder, writing the
// envelope as a fixed-arity array rather than a tagged map so that
// DecodeMsgpack can enforce the exact field count on the way back in.
func (e *Envelope) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(wireFields); err != nil {
		return err
	}
	if err := enc.EncodeString(e.Method); err != nil {
		return err
	}
	if err := enc.EncodeString(e.FullPath); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(e.Version)); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(e.Headers)); err != nil {
		return err
	}
	for _, h := range e.Headers {
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeString(h.Name); err != nil {
			return err
		}
		if err := enc.EncodeString(h.Value); err != nil {
			return err
		}
	}
	return enc.EncodeBytes(e.Body)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (e *Envelope) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != wireFields {
		return fmt.Errorf("%w: top level has %d fields, want %d", ErrUnknownFields, n, wireFields)
	}
	if e.Method, err = dec.DecodeString(); err != nil {
		return err
	}
	if e.FullPath, err = dec.DecodeString(); err != nil {
		return err
	}
	v, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	e.Version = Version(v)

	hn, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if hn < 0 {
		hn = 0
	}
	headers := make([]Header, 0, hn)
	for i := 0; i < hn; i++ {
		pairLen, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if pairLen != 2 {
			return fmt.Errorf("%w: header %d has %d fields, want 2", ErrUnknownFields, i, pairLen)
		}
		name, err := dec.DecodeString()
		if err != nil {
			return err
		}
		value, err := dec.DecodeString()
		if err != nil {
			return err
		}
		headers = append(headers, Header{Name: name, Value: value})
	}
	e.Headers = headers

	body, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	e.Body = body
	return nil
}
