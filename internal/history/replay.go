package history

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Ap3pp3rs94/hookhub/internal/client"
)

// Replay re-issues a stored item against the local origin it was
// originally captured for, bypassing the relay entirely. Each replay
// builds its own one-shot forwarder rather than reusing a running
// connector's, since the item's local origin is fixed at capture time
// and may not match whatever the caller is currently connected to.
func Replay(item Item, log zerolog.Logger) error {
	local, err := url.Parse(item.Local)
	if err != nil {
		return fmt.Errorf("history: item %s has invalid local origin %q: %w", item.ID, item.Local, err)
	}
	fwd := client.NewForwarder(local, log)
	fwd.Forward(item.Request.Envelope())
	return nil
}
