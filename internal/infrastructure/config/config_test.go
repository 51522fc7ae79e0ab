package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bizcore", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5*time.Minute, cfg.Audit.CacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
environment = "staging"

[http]
port = 9000

[database]
host = "db.internal"
name = "bizcore_staging"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	// Defaults still fill the gaps.
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BIZCORE_DATABASE_HOST", "env-host")
	t.Setenv("BIZCORE_HTTP_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 7070, cfg.HTTP.Port)
}

func TestValidate(t *testing.T) {
	t.Run("production requires a jwt secret", func(t *testing.T) {
		t.Setenv("BIZCORE_APP_ENVIRONMENT", "production")
		_, err := Load("")
		assert.Error(t, err)

		t.Setenv("BIZCORE_JWT_SECRET", "super-secret")
		_, err = Load("")
		assert.NoError(t, err)
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		t.Setenv("BIZCORE_HTTP_PORT", "0")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5433 user=u password=p dbname=d sslmode=disable", db.DSN())
}
