// Package version provides relay protocol version parsing, comparison, and
// WebSocket subprotocol helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the relay wire protocol version implemented by this library.
const Current = "1.0"

// SubprotocolPrefix is the prefix of the WebSocket subprotocol name.
const SubprotocolPrefix = "debugit.v"

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustCurrent returns the parsed Current version.
func MustCurrent() ProtocolVersion {
	v, err := Parse(Current)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Subprotocol returns the WebSocket subprotocol for a major version:
// "debugit.vN".
func Subprotocol(major uint16) string {
	return SubprotocolPrefix + strconv.FormatUint(uint64(major), 10)
}

// MajorFromSubprotocol extracts the major version from a subprotocol name.
func MajorFromSubprotocol(proto string) (uint16, error) {
	if !strings.HasPrefix(proto, SubprotocolPrefix) {
		return 0, fmt.Errorf("not a debugit subprotocol: %q", proto)
	}

	suffix := proto[len(SubprotocolPrefix):]
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in subprotocol: %q", proto)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in subprotocol %q: %w", proto, err)
	}

	return uint16(major), nil
}

// SupportedSubprotocols returns the subprotocol names for all supported
// major versions. Currently only major version 1.
func SupportedSubprotocols() []string {
	return []string{Subprotocol(MustCurrent().Major)}
}
