package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	p := writeFile(t, `
backend:
  url: http://api.local
feed:
  poll_interval: 3s
printers:
  - id: p1
    ip: 10.0.0.5
    port: 9100
    channel: kitchen
    enabled: true
`)
	t.Setenv("RIWA_API_URL", "")
	t.Setenv("RIWA_API_TOKEN", "secret")
	t.Setenv("LOG_LEVEL", "debug")

	a, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", a.Backend.URL)
	assert.Equal(t, "secret", a.Backend.Token)
	assert.Equal(t, "debug", a.Log.Level)
	assert.Equal(t, 3*time.Second, a.Feed.PollInterval)
	assert.Equal(t, 100, a.Feed.OrderLimit)
	assert.Equal(t, time.Second, a.Alert.Repeat)
	assert.Equal(t, 15*time.Second, a.Alert.Timeout)
	assert.Equal(t, 10*time.Minute, a.KDS.UrgentAfter)
	assert.Equal(t, 3000, a.HTTP.Port)
	require.Len(t, a.Printers, 1)
	assert.Equal(t, "kitchen", a.Printers[0].Channel)
}

func TestLoad_EnvURLWinsOverFile(t *testing.T) {
	p := writeFile(t, "backend:\n  url: http://file\n")
	t.Setenv("RIWA_API_URL", "http://env")
	a, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://env", a.Backend.URL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("RIWA_API_URL", "")
	p := writeFile(t, "printers:\n  - id: p1\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
	assert.Contains(t, err.Error(), "printers[0].ip")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DB{Host: "db", Port: 5432, User: "u", Pass: "p", Name: "riwa", SSLMode: "disable", MaxConns: 4}
	assert.Equal(t, "postgres://u:p@db:5432/riwa?sslmode=disable&pool_max_conns=4", d.DSN())
	assert.True(t, d.Configured())
	assert.Equal(t, "postgres://x", DB{URL: "postgres://x"}.DSN())
	assert.False(t, DB{}.Configured())
}
