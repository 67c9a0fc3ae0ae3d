package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8002, cfg.Server.Port)
	assert.Equal(t, "Wood", cfg.Catalog.BreedMarker)
	assert.Equal(t, 3, cfg.Catalog.ColorParamType)
	assert.Equal(t, []int64{1, 2, 3, 5, 6}, cfg.Catalog.ColorGroupIDs)
	assert.Equal(t, DefaultBreeds, cfg.Catalog.Breeds)
	assert.True(t, cfg.Log.Enable)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_PORT", "9100")
	t.Setenv("DB_HOST", "10.0.0.5")
	t.Setenv("DB_NAME", "altawin")
	t.Setenv("ENABLE_LOGGING", "false")
	t.Setenv("CORS_ORIGINS", "http://desk.local,http://ops.local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "10.0.0.5", cfg.Database.Host)
	assert.Equal(t, "altawin", cfg.Database.DBName)
	assert.False(t, cfg.Log.Enable)
	assert.Equal(t, []string{"http://desk.local", "http://ops.local"}, cfg.Server.CORSOrigins)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("GC_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnvOrDefault("GC_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("GC_TEST_MISSING", "fallback"))
}
