package core

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "sqlite" {
		t.Fatalf("expected sqlite default, got %q", cfg.StorageDriver)
	}
	if !cfg.SeedOnStart {
		t.Fatal("seed on start should default to true")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GYMCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("GYMCORE_POSTGRES_DSN", "postgres://gym:secret@db/gymcore")
	t.Setenv("GYMCORE_SEED_ON_START", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "postgres" || cfg.PostgresDSN != "postgres://gym:secret@db/gymcore" {
		t.Fatalf("env overrides ignored: %+v", cfg)
	}
	if cfg.SeedOnStart {
		t.Fatal("seed override ignored")
	}
}
