// Package discovery advertises relay servers on the local network and finds
// them again using DNS-SD over multicast DNS.
//
// # Service Type
//
// A relay server registers one instance of
//
//	_debugit._tcp.local
//
// on its relay port. The instance name defaults to "debugit-<host>-<port>".
//
// # TXT Records
//
//	v     protocol version ("1.0")
//	auth  "1" when viewers must supply a password, "0" otherwise
//	path  WebSocket path on the relay HTTP server ("/")
//	tls   "1" when the relay is served over TLS (wss)
//
// Browsing aggregates addresses reported on several interfaces into a single
// Service per instance name.
package discovery
