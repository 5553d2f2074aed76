package envelope

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestRoundTrip(t *testing.T) {
	cases := []Envelope{
		{
			Method:   "GET",
			FullPath: "/",
			Version:  Version11,
			Headers:  nil,
			Body:     nil,
		},
		{
			Method:   "POST",
			FullPath: "/hook?x=1",
			Version:  Version20,
			Headers: []Header{
				{Name: "x-event", Value: "push"},
				{Name: "x-h", Value: "a"},
				{Name: "x-h", Value: "b"},
			},
			Body: []byte(`{"a":1}`),
		},
		{
			Method:   "PUT",
			FullPath: "/a/b?c=d",
			Version:  Version09,
			Headers:  []Header{},
			Body:     []byte{},
		},
	}

	for _, want := range cases {
		enc, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", want, err)
		}
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Method != want.Method || got.FullPath != want.FullPath || got.Version != want.Version {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
		if !bytes.Equal(got.Body, want.Body) {
			t.Fatalf("body mismatch: got %v, want %v", got.Body, want.Body)
		}
		wantHeaders := want.Headers
		if len(wantHeaders) == 0 {
			wantHeaders = nil
		}
		gotHeaders := got.Headers
		if len(gotHeaders) == 0 {
			gotHeaders = nil
		}
		if !reflect.DeepEqual(gotHeaders, wantHeaders) {
			t.Fatalf("header mismatch: got %+v, want %+v", gotHeaders, wantHeaders)
		}
	}
}

func TestHeaderOrderAndDuplicatesPreserved(t *testing.T) {
	env := Envelope{
		Method:   "GET",
		FullPath: "/",
		Version:  Version11,
		Headers: []Header{
			{Name: "x-h", Value: "a"},
			{Name: "x-h", Value: "b"},
		},
	}
	enc, err := Encode(env)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Headers) != 2 || got.Headers[0].Value != "a" || got.Headers[1].Value != "b" {
		t.Fatalf("expected [a b] in order, got %+v", got.Headers)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	// encode an envelope-shaped array with an extra field.
	_ = enc.EncodeArrayLen(6)
	_ = enc.EncodeString("GET")
	_ = enc.EncodeString("/")
	_ = enc.EncodeUint8(2)
	_ = enc.EncodeArrayLen(0)
	_ = enc.EncodeBytes(nil)
	_ = enc.EncodeString("unexpected")

	if _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("expected decode error for extra top-level field")
	}
}

func TestDecodeRejectsMalformedHeaderPair(t *testing.T) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	_ = enc.EncodeArrayLen(5)
	_ = enc.EncodeString("GET")
	_ = enc.EncodeString("/")
	_ = enc.EncodeUint8(2)
	_ = enc.EncodeArrayLen(1)
	_ = enc.EncodeArrayLen(3) // malformed: should be 2
	_ = enc.EncodeString("x")
	_ = enc.EncodeString("y")
	_ = enc.EncodeString("z")
	_ = enc.EncodeBytes(nil)

	if _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("expected decode error for malformed header pair")
	}
}

func TestVersionMapping(t *testing.T) {
	cases := []struct {
		major, minor int
		want         Version
	}{
		{0, 9, Version09},
		{1, 0, Version10},
		{1, 1, Version11},
		{2, 0, Version11}, // HTTP/2.0 capture collapses onto 1.1's integer
		{3, 0, Version20},
	}
	for _, c := range cases {
		got, err := CaptureVersion(c.major, c.minor)
		if err != nil {
			t.Fatalf("CaptureVersion(%d,%d): %v", c.major, c.minor, err)
		}
		if got != c.want {
			t.Fatalf("CaptureVersion(%d,%d) = %d, want %d", c.major, c.minor, got, c.want)
		}
	}

	// The asymmetry: integer 2 always rebuilds as 1.1, never 2.0.
	major, minor, err := Version11.Rebuild()
	if err != nil || major != 1 || minor != 1 {
		t.Fatalf("Version11.Rebuild() = %d.%d, %v, want 1.1, nil", major, minor, err)
	}

	// Integer 3 rebuilds as 2.0 — reachable only via an HTTP/3 capture,
	// never via an HTTP/2 one.
	major, minor, err = Version20.Rebuild()
	if err != nil || major != 2 || minor != 0 {
		t.Fatalf("Version20.Rebuild() = %d.%d, %v, want 2.0, nil", major, minor, err)
	}
}
