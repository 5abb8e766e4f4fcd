package discovery

import (
	"fmt"
	"slices"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeRelayTXT creates TXT records for a relay server.
func EncodeRelayTXT(info *RelayInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyVersion] = info.Version
	txt[TXTKeyAuth] = encodeBool(info.Auth)

	path := info.Path
	if path == "" {
		path = "/"
	}
	txt[TXTKeyPath] = path

	if info.TLS {
		txt[TXTKeyTLS] = "1"
	}

	return txt
}

// DecodeRelayTXT parses TXT records from a relay server. The port and
// instance name are not part of the TXT data and are left zero.
func DecodeRelayTXT(txt TXTRecordMap) (*RelayInfo, error) {
	info := &RelayInfo{}

	var ok bool
	info.Version, ok = txt[TXTKeyVersion]
	if !ok || info.Version == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}

	authStr, ok := txt[TXTKeyAuth]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAuth)
	}
	auth, err := decodeBool(authStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyAuth, authStr)
	}
	info.Auth = auth

	info.Path = txt[TXTKeyPath]
	if info.Path == "" {
		info.Path = "/"
	}

	if tlsStr, ok := txt[TXTKeyTLS]; ok {
		info.TLS, err = decodeBool(tlsStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyTLS, tlsStr)
		}
	}

	return info, nil
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeBool(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, ErrInvalidTXT
	}
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, sorted by key so registrations are reproducible.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInstanceName)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: exceeds %d bytes", ErrInvalidInstanceName, MaxInstanceNameLen)
	}
	return nil
}

// InstanceName builds the default instance name for a relay on host:port,
// truncated to MaxInstanceNameLen.
func InstanceName(host string, port int) string {
	name := fmt.Sprintf("debugit-%s-%d", host, port)
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
