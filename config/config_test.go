package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "token:\n  secret: s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Approval.MaxAttempts)
	assert.Equal(t, "outpass", cfg.Token.Issuer)
	assert.Equal(t, 60, cfg.Token.GraceMinutes)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 5*time.Minute, cfg.Overdue.Interval)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
	assert.True(t, cfg.Overdue.Enabled)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeConfig(t, "server: [") }},
		{"bad timezone", func(t *testing.T) string { return writeConfig(t, "timezone: Mars/Olympus\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Token.Secret)
	assert.NotNil(t, cfg.Location)
}

func TestPushEnabled(t *testing.T) {
	assert.False(t, PushConfig{PublicKey: "pub"}.Enabled())
	assert.True(t, PushConfig{PublicKey: "pub", PrivateKey: "priv"}.Enabled())
}
