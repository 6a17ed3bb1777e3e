package hub

import "errors"

// ErrNoConnections is returned by Broadcast when the user has no live
// connections. The workflow runtime treats it like any other emit
// failure: logged and dropped.
var ErrNoConnections = errors.New("hub: no connections for user")
