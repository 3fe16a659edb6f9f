package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "0.0.0.0:7070", cfg.Addr())
	assert.Equal(t, 8070, cfg.ResolvedManagementPort())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shibuvec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 127.0.0.1
port: 9000
max_connections: 5
command_rate: 50
command_burst: 10
idle_timeout: 30s
log_level: debug
`), 0644))

	t.Setenv("SHIBUVEC_PORT", "9100")
	t.Setenv("SHIBUVEC_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, int32(5), cfg.MaxConnections)
	assert.Equal(t, 50.0, cfg.CommandRate)
	assert.Equal(t, 10, cfg.CommandBurst)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10100, cfg.ResolvedManagementPort())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"SHIBUVEC_HOST":            "localhost",
		"SHIBUVEC_MANAGEMENT_PORT": "-1",
		"SHIBUVEC_MAX_CONNECTIONS": "1",
		"SHIBUVEC_IDLE_TIMEOUT":    "1m",
	}))
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, -1, cfg.ResolvedManagementPort())
	assert.Equal(t, int32(1), cfg.MaxConnections)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)

	err = cfg.ApplyEnv(envMap(map[string]string{"SHIBUVEC_PORT": "seventy"}))
	assert.ErrorContains(t, err, "SHIBUVEC_PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Host = ""
	cfg.Port = 70000
	cfg.MaxConnections = 0
	cfg.CommandRate = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, msg := range []string{"host", "port 70000", "max connections", "command rate"} {
		assert.ErrorContains(t, err, msg)
	}
}
