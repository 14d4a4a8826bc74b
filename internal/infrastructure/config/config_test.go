package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, "shopkart-api", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.StrictStock)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("STRICT_STOCK", "true")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.ServerPort)
	assert.True(t, cfg.StrictStock)
	assert.Equal(t, "sk_test_123", cfg.StripeSecretKey)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "SERVICE_NAME=teststore\nSMTP_PORT=2525\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o644))

	cfg, err := Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "teststore", cfg.ServiceName)
	assert.Equal(t, 2525, cfg.SMTPPort)
}
