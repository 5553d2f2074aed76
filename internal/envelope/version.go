package envelope

import "fmt"

// Version is the wire-level integer encoding of an HTTP version. The
// mapping is intentionally asymmetric between capture and rebuild:
//
//	int | HTTP version
//	 0  | 0.9
//	 1  | 1.0
//	 2  | 1.1  (and 2.0 on capture)
//	 3  | 2.0  (and 3.0 on capture)
//	 4  | 3.0  (rebuild only; never produced by capture)
//
// Capturing an HTTP/2.0 request produces the same integer (2) as
// capturing HTTP/1.1; rebuilding integer 2 always yields 1.1. An
// end-to-end HTTP/2.0 capture is therefore forwarded as HTTP/1.1, and
// an HTTP/3 capture (integer 3) is forwarded as HTTP/2.0. This
// is the behaviour of the source system and is preserved exactly —
// it must not be "fixed" without a protocol version bump.
type Version uint8

const (
	Version09 Version = 0
	Version10 Version = 1
	Version11 Version = 2
	Version20 Version = 3
	Version30 Version = 4
)

// CaptureVersion maps an HTTP request's major/minor protocol numbers
// to the wire integer, as observed on the public (capture) side.
func CaptureVersion(major, minor int) (Version, error) {
	switch {
	case major == 0 && minor == 9:
		return Version09, nil
	case major == 1 && minor == 0:
		return Version10, nil
	case major == 1 && minor == 1:
		return Version11, nil
	case major == 2:
		return Version11, nil // collision: 2.0 capture collapses onto 1.1's integer
	case major == 3:
		return Version20, nil
	default:
		return 0, fmt.Errorf("envelope: unsupported protocol %d.%d", major, minor)
	}
}

// Rebuild maps a wire integer back to major/minor protocol numbers, as
// used when the client reconstructs the request to forward locally.
func (v Version) Rebuild() (major, minor int, err error) {
	switch v {
	case Version09:
		return 0, 9, nil
	case Version10:
		return 1, 0, nil
	case Version11:
		return 1, 1, nil
	case Version20:
		return 2, 0, nil
	case Version30:
		return 3, 0, nil
	default:
		return 0, 0, fmt.Errorf("envelope: unknown version integer %d", v)
	}
}

// String renders the rebuilt HTTP/major.minor form, e.g. "HTTP/1.1".
func (v Version) String() string {
	major, minor, err := v.Rebuild()
	if err != nil {
		return fmt.Sprintf("HTTP/?(%d)", uint8(v))
	}
	return fmt.Sprintf("HTTP/%d.%d", major, minor)
}
