package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayTXTRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		info RelayInfo
	}{
		{"open relay", RelayInfo{Version: "1.0", Path: "/"}},
		{"password relay", RelayInfo{Version: "1.0", Auth: true, Path: "/logs"}},
		{"tls relay", RelayInfo{Version: "1.2", Auth: true, Path: "/", TLS: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strs := TXTRecordsToStrings(EncodeRelayTXT(&tt.info))
			got, err := DecodeRelayTXT(StringsToTXTRecords(strs))
			require.NoError(t, err)
			assert.Equal(t, tt.info, *got)
		})
	}
}

func TestEncodeRelayTXTDefaults(t *testing.T) {
	txt := EncodeRelayTXT(&RelayInfo{Version: "1.0"})
	assert.Equal(t, TXTRecordMap{"v": "1.0", "auth": "0", "path": "/"}, txt)
	assert.Equal(t, []string{"auth=0", "path=/", "v=1.0"}, TXTRecordsToStrings(txt))
}

func TestDecodeRelayTXTErrors(t *testing.T) {
	tcs := map[string]struct {
		txt  TXTRecordMap
		want error
	}{
		"missing version": {TXTRecordMap{"auth": "0"}, ErrMissingRequired},
		"missing auth":    {TXTRecordMap{"v": "1.0"}, ErrMissingRequired},
		"bad auth":        {TXTRecordMap{"v": "1.0", "auth": "yes"}, ErrInvalidTXT},
		"bad tls":         {TXTRecordMap{"v": "1.0", "auth": "1", "tls": "x"}, ErrInvalidTXT},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRelayTXT(tc.txt)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "b=x=y", "flag", ""})
	assert.Equal(t, TXTRecordMap{"a": "1", "b": "x=y", "flag": ""}, txt)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "debugit-box-3001", InstanceName("box", 3001))

	long := InstanceName(strings.Repeat("h", 100), 3001)
	assert.Len(t, long, MaxInstanceNameLen)
	assert.NoError(t, ValidateInstanceName(long))

	assert.ErrorIs(t, ValidateInstanceName(""), ErrInvalidInstanceName)
	assert.ErrorIs(t, ValidateInstanceName(strings.Repeat("x", 64)), ErrInvalidInstanceName)
}
