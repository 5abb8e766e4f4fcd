package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "/", cfg.Path)
	assert.Equal(t, 5000*time.Millisecond, cfg.ReconnectInterval)
	assert.NoError(t, cfg.Validate())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Server")
	require.NoError(t, err)
	assert.Equal(t, ModeServer, m)

	m, err = ParseMode(" client ")
	require.NoError(t, err)
	assert.Equal(t, ModeClient, m)

	_, err = ParseMode("peer")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestConfigValidate(t *testing.T) {
	tcs := map[string]struct {
		cfg  Config
		want error
	}{
		"server zero value": {cfg: Config{Mode: ModeServer}},
		"client ok":         {cfg: Config{Mode: ModeClient, URL: "ws://relay:3001/"}},
		"client wss":        {cfg: Config{Mode: ModeClient, URL: "wss://relay/logs?x=1"}},
		"no mode":           {cfg: Config{}, want: ErrInvalidMode},
		"bad mode":          {cfg: Config{Mode: "both"}, want: ErrInvalidMode},
		"client no url":     {cfg: Config{Mode: ModeClient}, want: ErrMissingTarget},
		"client blank url":  {cfg: Config{Mode: ModeClient, URL: "  "}, want: ErrMissingTarget},
		"client http url":   {cfg: Config{Mode: ModeClient, URL: "http://relay/"}, want: ErrInvalidConfig},
		"client no host":    {cfg: Config{Mode: ModeClient, URL: "ws:///path"}, want: ErrInvalidConfig},
		"port too high":     {cfg: Config{Mode: ModeServer, Port: 70000}, want: ErrInvalidConfig},
		"relative path":     {cfg: Config{Mode: ModeServer, Path: "logs"}, want: ErrInvalidConfig},
		"metrics clash":     {cfg: Config{Mode: ModeServer, MetricsPath: "/"}, want: ErrInvalidConfig},
		"bad hash":          {cfg: Config{Mode: ModeServer, PasswordHash: "plain"}, want: ErrInvalidConfig},
		"tls without key":   {cfg: Config{Mode: ModeServer, TLS: &TLSConfig{CertFile: "c.pem"}}, want: ErrInvalidConfig},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestWithPassword(t *testing.T) {
	tests := []struct {
		target, password, want string
	}{
		{"ws://relay:3001/", "", "ws://relay:3001/"},
		{"ws://relay:3001/", "secret", "ws://relay:3001/?password=secret"},
		{"ws://relay:3001/?room=a", "secret", "ws://relay:3001/?room=a&password=secret"},
		{"ws://relay/", "a b&c", "ws://relay/?password=a+b%26c"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, withPassword(tt.target, tt.password))
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "ws://relay/?password=xxxxx", redact("ws://relay/?password=secret"))
	assert.Equal(t, "ws://relay/", redact("ws://relay/"))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)

	cfg := Config{Mode: ModeServer, PasswordHash: hash}
	assert.NoError(t, cfg.Validate())
}
