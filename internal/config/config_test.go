package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"MDB_CONFIG_FILE", "MONGODB_URI", "MONGODB_DATABASE", "MDB_CONFIRM_DESTRUCTIVE", "MDB_SCHEMA_SAMPLE_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.URI != DefaultURI {
		t.Errorf("expected default uri, got %s", cfg.URI)
	}
	if cfg.Database != DefaultDatabase {
		t.Errorf("expected default database, got %s", cfg.Database)
	}
	if !cfg.ConfirmDestructive {
		t.Error("confirmation should default to on")
	}
	if cfg.SchemaSampleSize != DefaultSampleSize {
		t.Errorf("expected default sample size, got %d", cfg.SchemaSampleSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db.internal:27017")
	t.Setenv("MONGODB_DATABASE", "shop")
	t.Setenv("MDB_CONFIRM_DESTRUCTIVE", "false")
	t.Setenv("MDB_SCHEMA_SAMPLE_SIZE", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.URI != "mongodb://db.internal:27017" {
		t.Errorf("uri override ignored: %s", cfg.URI)
	}
	if cfg.Database != "shop" {
		t.Errorf("database override ignored: %s", cfg.Database)
	}
	if cfg.ConfirmDestructive {
		t.Error("confirmation override ignored")
	}
	if cfg.SchemaSampleSize != 250 {
		t.Errorf("sample size override ignored: %d", cfg.SchemaSampleSize)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "uri: mongodb://file-host:27017\ndatabase: filedb\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MDB_CONFIG_FILE", path)
	t.Setenv("MONGODB_DATABASE", "envdb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// File overrides defaults; environment overrides the file.
	if cfg.URI != "mongodb://file-host:27017" {
		t.Errorf("file uri ignored: %s", cfg.URI)
	}
	if cfg.Database != "envdb" {
		t.Errorf("env should win over file: %s", cfg.Database)
	}
	// Keys absent from the file keep their defaults.
	if cfg.SchemaSampleSize != DefaultSampleSize {
		t.Errorf("absent file key should keep default, got %d", cfg.SchemaSampleSize)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("MDB_CONFIRM_DESTRUCTIVE", "nope")
		if _, err := Load(); err == nil {
			t.Error("expected error for unparseable bool")
		}
	})

	t.Run("bad sample size", func(t *testing.T) {
		t.Setenv("MDB_SCHEMA_SAMPLE_SIZE", "0")
		if _, err := Load(); err == nil {
			t.Error("expected error for non-positive sample size")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("MDB_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := Load(); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
