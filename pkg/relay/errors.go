package relay

import "errors"

// Relay errors.
var (
	// ErrPortInUse is returned when a server is started on a port that
	// another server already owns.
	ErrPortInUse = errors.New("relay port already in use")

	// ErrMissingTarget is returned when a client is configured without a URL.
	ErrMissingTarget = errors.New("relay client requires a target url")

	// ErrInvalidMode is returned for a mode other than server or client.
	ErrInvalidMode = errors.New("invalid relay mode")

	// ErrInvalidConfig is returned for malformed configuration values.
	ErrInvalidConfig = errors.New("invalid relay configuration")

	// ErrUnauthorized is returned by Watch when the server rejects the
	// password.
	ErrUnauthorized = errors.New("relay rejected password")

	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("relay transport closed")
)
