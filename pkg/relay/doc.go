// Package relay implements the network relay transport: a log sink that
// ships rendered events over WebSocket, either as a broadcast server that
// viewers connect to or as a client that pushes events to a remote relay.
//
// # Wire Format
//
// Every event is sent as one text message holding the single-line JSON
// record produced by log.Render:
//
//	{"level":"[INFO]-(2024-05-01T10:00:00.000Z)","message":"y","meta":{"a":1}}
//
// # Server Role
//
// The server listens on Host:Port and upgrades requests on Path. When a
// password is configured, a viewer must pass it as the "password" query
// parameter; a mismatch is answered with close code 1008 (policy violation)
// and the viewer never joins the broadcast set. Delivery is best effort:
// each viewer has a small send buffer and a viewer whose buffer is full
// misses the event.
//
// Only one server may own a port. Ownership is tracked by a PortRegistry
// that the caller passes in; a second server on a taken port fails with
// ErrPortInUse.
//
// # Client Role
//
// The client dials URL (with the password appended as a query parameter)
// and reconnects at a fixed ReconnectInterval after every failure, forever,
// until closed. Events delivered while disconnected are dropped.
//
// # Viewing
//
// Watch connects to a server as a viewer and hands each received record,
// parsed with log.ParseWire, to a callback.
//
// # Keep-Alive
//
// Both roles ping the peer every PingInterval. A peer that sends nothing,
// not even a pong, for PingInterval+PongTimeout is considered gone.
package relay
