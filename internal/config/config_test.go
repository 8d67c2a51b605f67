package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 8081, cfg.APIPort)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "7d", cfg.Auth.JWTExpiresIn)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
apiPort: 9000
auth:
  mode: session
  sessionTTL: 24h
database:
  type: postgres
  host: db.internal
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.APIPort)
	assert.Equal(t, "session", cfg.Auth.Mode)
	assert.Equal(t, "24h", cfg.Auth.SessionTTL)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestValidateRejectsBadAuthMode(t *testing.T) {
	path := writeConfig(t, "auth:\n  mode: oauth\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.mode")
}

func TestValidateRejectsDefaultSecretInProd(t *testing.T) {
	path := writeConfig(t, "env: prod\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwtSecret")

	// A prod deployment with its own secret is fine.
	path = writeConfig(t, "env: prod\nauth:\n  jwtSecret: an-actual-secret\n")
	_, err = LoadConfig(path)
	assert.NoError(t, err)
}

func TestValidateRejectsArchiveWithoutBucket(t *testing.T) {
	path := writeConfig(t, "archive:\n  enabled: true\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive.bucket")
}

func TestValidateRejectsBadPort(t *testing.T) {
	var cfg Config
	cfg.APIPort = -1
	cfg.Auth.Mode = "jwt"
	assert.Error(t, cfg.Validate())
}
