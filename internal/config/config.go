// Package config loads the engine's environment-style configuration: DEBUG
// and DATA_PATH, plus the embedding registry client's endpoint variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the engine's process-wide configuration.
type Config struct {
	Debug    bool
	DataPath string

	EmbeddingEndpoint string
	EmbeddingAPIKey   string
}

var (
	loaded *Config
)

// Load reads the .env file (if present) in the project root, found by
// walking up from the working directory to the nearest directory holding a
// go.mod, then overlays process environment variables, matching godotenv's
// usual precedence.
func Load() *Config {
	if loaded != nil {
		return loaded
	}

	envPath := filepath.Join(findProjectRoot(), ".env")
	if err := godotenv.Load(envPath); err != nil {
		// No .env file is a normal deployment shape, not a failure.
	}

	cfg := &Config{
		DataPath:          os.Getenv("DATA_PATH"),
		EmbeddingEndpoint: os.Getenv("EMBEDDING_ENDPOINT_URL"),
		EmbeddingAPIKey:   os.Getenv("EMBEDDING_API_KEY"),
	}
	if debug, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		cfg.Debug = debug
	}

	loaded = cfg
	return cfg
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
