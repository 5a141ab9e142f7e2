package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshell/internal/errors"
)

func serverConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Listen:  true,
		TCPAddr: DefaultTCPAddr,
		UDPAddr: DefaultUDPAddr,
		Root:    t.TempDir(),
	}
}

func clientConfig(op string, args ...string) *Config {
	return &Config{
		TCPAddr:      DefaultTCPAddr,
		UDPAddr:      DefaultUDPAddr,
		ChunkRetries: DefaultChunkRetries,
		Op:           op,
		Args:         args,
	}
}

func TestValidateServer(t *testing.T) {
	assert.NoError(t, serverConfig(t).Validate())

	c := serverConfig(t)
	c.Root = ""
	assertConfigError(t, c.Validate(), "root")

	c = serverConfig(t)
	c.Root = "/no/such/dir"
	assertConfigError(t, c.Validate(), "root")

	c = serverConfig(t)
	c.Op = "ls"
	assertConfigError(t, c.Validate(), "operation")
}

func TestValidateClient(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		ok   bool
	}{
		{"ls", clientConfig("ls"), true},
		{"cd with path", clientConfig("cd", "docs"), true},
		{"up", clientConfig("up"), true},
		{"mkdir", clientConfig("mkdir", "new"), true},
		{"cp", clientConfig("cp", "a", "b"), true},
		{"put local only", clientConfig("put", "./f.bin"), true},
		{"put with remote name", clientConfig("put", "./f.bin", "dest.bin"), true},
		{"get", clientConfig("get", "f.bin"), true},
		{"no op", clientConfig(""), false},
		{"unknown op", clientConfig("rm", "x"), false},
		{"cd missing path", clientConfig("cd"), false},
		{"cp one arg", clientConfig("cp", "a"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	c := clientConfig("ls")
	c.TCPAddr = "not-an-address"
	assertConfigError(t, c.Validate(), "address")

	// With -u the datagram address is the one that matters.
	c = clientConfig("ls")
	c.UDP = true
	c.UDPAddr = "bogus"
	assertConfigError(t, c.Validate(), "address")
}

func TestValidateChunkRetries(t *testing.T) {
	c := clientConfig("get", "f")
	c.ChunkRetries = 0
	assertConfigError(t, c.Validate(), "chunk-retries")
}

func assertConfigError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var ce *errors.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, field, ce.Field)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FILESHELL_LISTEN", "true")
	t.Setenv("FILESHELL_TCP_ADDR", "127.0.0.1:7000")
	t.Setenv("FILESHELL_ROOT", "/srv/files")
	t.Setenv("FILESHELL_TIMEOUT", "10")
	t.Setenv("FILESHELL_CHUNK_RETRIES", "3")
	t.Setenv("FILESHELL_VERBOSE", "2")

	var cfg Config
	LoadFromEnv(&cfg)

	assert.True(t, cfg.Listen)
	assert.Equal(t, "127.0.0.1:7000", cfg.TCPAddr)
	assert.Equal(t, "/srv/files", cfg.Root)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.ChunkRetries)
	assert.Equal(t, 2, cfg.Verbose)
}

func TestLoadFromEnvIgnoresJunk(t *testing.T) {
	t.Setenv("FILESHELL_TIMEOUT", "soon")
	t.Setenv("FILESHELL_LISTEN", "maybe")

	var cfg Config
	LoadFromEnv(&cfg)

	assert.Zero(t, cfg.Timeout)
	assert.False(t, cfg.Listen)
}
