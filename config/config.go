package config

import (
	"os"
	"strconv"

	"github.com/jsphweid/staffmidi/constants"
)

// Config holds the application configuration
type Config struct {
	Environment string
	Port        string

	// where exports and recordings land
	OutDir      string
	SaveExports bool

	// export metadata registry, disabled when DynamoTable is empty
	DynamoEndpoint string
	DynamoRegion   string
	DynamoTable    string

	SentryDSN string

	DefaultTempo float64
}

func Load() *Config {
	return &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		Port:           getEnv("PORT", "8080"),
		OutDir:         constants.GetOutDir(),
		SaveExports:    getEnv("SAVE_EXPORTS", "false") == "true",
		DynamoEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		DynamoRegion:   getEnv("DYNAMODB_REGION", "us-east-1"),
		DynamoTable:    getEnv("DYNAMODB_TABLE", ""),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		DefaultTempo:   getTempo("DEFAULT_TEMPO", constants.DefaultTempo),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// getTempo ignores values outside the editor's tempo range
func getTempo(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < constants.MinTempo || v > constants.MaxTempo {
		return defaultValue
	}
	return v
}

func (c *Config) RegistryEnabled() bool {
	return c.DynamoTable != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
