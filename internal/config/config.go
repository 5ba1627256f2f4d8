// Package config loads the server configuration from the environment and an
// optional YAML file. Environment variables always win over file values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultURI        = "mongodb://localhost:27017"
	DefaultDatabase   = "test"
	DefaultSampleSize = 100
)

// Config holds everything the server needs at startup.
type Config struct {
	URI                string `yaml:"uri"`
	Database           string `yaml:"database"`
	ConfirmDestructive bool   `yaml:"confirm_destructive"`
	SchemaSampleSize   int    `yaml:"schema_sample_size"`
}

// Load builds the configuration: defaults, then the YAML file named by
// MDB_CONFIG_FILE (if set), then environment overrides.
func Load() (Config, error) {
	cfg := Config{
		URI:                DefaultURI,
		Database:           DefaultDatabase,
		ConfirmDestructive: true,
		SchemaSampleSize:   DefaultSampleSize,
	}

	if path := os.Getenv("MDB_CONFIG_FILE"); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		cfg.URI = uri
	}
	if db := os.Getenv("MONGODB_DATABASE"); db != "" {
		cfg.Database = db
	}
	if v := os.Getenv("MDB_CONFIRM_DESTRUCTIVE"); v != "" {
		confirm, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing MDB_CONFIRM_DESTRUCTIVE %q: %w", v, err)
		}
		cfg.ConfirmDestructive = confirm
	}
	if v := os.Getenv("MDB_SCHEMA_SAMPLE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return Config{}, fmt.Errorf("parsing MDB_SCHEMA_SAMPLE_SIZE %q: must be a positive integer", v)
		}
		cfg.SchemaSampleSize = size
	}

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	// Only keys present in the file should override defaults, so the file
	// is decoded over the already-populated struct.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
