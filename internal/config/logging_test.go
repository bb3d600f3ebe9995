package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Level)
	}
	if cfg.MaxMB != 10 || cfg.MaxBackups != 3 {
		t.Fatalf("rotation = %d MB x %d, want 10 x 3", cfg.MaxMB, cfg.MaxBackups)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LOG_FILE", "/tmp/betpro.log")
	t.Setenv("LOG_MAX_BACKUPS", "7")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || !cfg.Pretty || cfg.File != "/tmp/betpro.log" || cfg.MaxBackups != 7 {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}
