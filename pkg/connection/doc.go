// Package connection provides the reconnect state machine used by the relay
// client.
//
// A Manager drives a caller-supplied ConnectFunc through the states
//
//	Disconnected -> Connecting -> Connected -> Disconnected -> ... -> Closed
//
// # Reconnection Strategy
//
// When an attempt fails or an established connection is lost, the Manager
// schedules exactly one new attempt after a fixed interval (5 seconds by
// default). The interval never grows and there is no retry limit: the
// client keeps trying until Close is called.
//
// At most one attempt is ever in flight. The pending attempt is a single
// timer; a successful connect or Close stops it.
package connection
