package fanout

import "errors"

// ErrDetached is returned by Subscription.Recv once the subscription
// has been torn down, whether for lagging behind or because the bus
// owner shut it down.
var ErrDetached = errors.New("fanout: subscription detached")
