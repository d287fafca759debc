package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:4000", cfg.Addr())
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.CatalogPath)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SANDBOX_HOST", "127.0.0.1")
	t.Setenv("SANDBOX_PORT", "8088")
	t.Setenv("SANDBOX_CART_TTL", "2h")
	t.Setenv("SANDBOX_PUBLIC_KEY", "pk_local")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", cfg.Addr())
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, "pk_local", cfg.PublicKey)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("SANDBOX_PORT", "eighty")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SANDBOX_PORT", "80")
	t.Setenv("SANDBOX_CART_TTL", "forever")
	_, err = LoadConfig()
	assert.Error(t, err)
}
