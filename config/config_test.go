package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "OUT_PATH", "SAVE_EXPORTS", "DYNAMODB_TABLE", "DEFAULT_TEMPO"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert := assert.New(t)
	assert.Equal("development", cfg.Environment)
	assert.Equal("8080", cfg.Port)
	assert.Equal("./out", cfg.OutDir)
	assert.False(cfg.SaveExports)
	assert.False(cfg.RegistryEnabled())
	assert.Equal(90.0, cfg.DefaultTempo)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("OUT_PATH", "/tmp/exports")
	t.Setenv("SAVE_EXPORTS", "true")
	t.Setenv("DYNAMODB_TABLE", "staffmidi-exports")
	t.Setenv("DEFAULT_TEMPO", "132.5")
	cfg := Load()

	assert := assert.New(t)
	assert.True(cfg.IsProduction())
	assert.Equal("/tmp/exports", cfg.OutDir)
	assert.True(cfg.SaveExports)
	assert.True(cfg.RegistryEnabled())
	assert.Equal(132.5, cfg.DefaultTempo)
}

func TestBadTempoFallsBack(t *testing.T) {
	t.Setenv("DEFAULT_TEMPO", "fast")
	assert.Equal(t, 90.0, Load().DefaultTempo)
	t.Setenv("DEFAULT_TEMPO", "-5")
	assert.Equal(t, 90.0, Load().DefaultTempo)
	t.Setenv("DEFAULT_TEMPO", "900")
	assert.Equal(t, 90.0, Load().DefaultTempo)
	t.Setenv("DEFAULT_TEMPO", "20")
	assert.Equal(t, 20.0, Load().DefaultTempo)
}
