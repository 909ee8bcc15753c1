package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Target != "postgres" {
		t.Errorf("Target = %q, want postgres", cfg.Target)
	}
	if cfg.OutputDir != "migrations" {
		t.Errorf("OutputDir = %q, want migrations", cfg.OutputDir)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	content := `target: laravel
output_dir: database/migrations
schema: app
exclude_tables:
  - schema_migrations
  - audit_log
timestamps: true
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Target != "laravel" {
		t.Errorf("Target = %q, want laravel", cfg.Target)
	}
	if cfg.OutputDir != "database/migrations" {
		t.Errorf("OutputDir = %q, want database/migrations", cfg.OutputDir)
	}
	if cfg.SchemaName != "app" {
		t.Errorf("SchemaName = %q, want app", cfg.SchemaName)
	}
	if len(cfg.ExcludeTables) != 2 || cfg.ExcludeTables[0] != "schema_migrations" {
		t.Errorf("ExcludeTables = %v", cfg.ExcludeTables)
	}
	if !cfg.Timestamps {
		t.Error("Timestamps = false, want true")
	}
	if cfg.SoftDeletes {
		t.Error("SoftDeletes = true, want false")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("schema: app\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Target != "postgres" || cfg.OutputDir != "migrations" {
		t.Errorf("partial file lost defaults: %+v", cfg)
	}
	if cfg.SchemaName != "app" {
		t.Errorf("SchemaName = %q, want app", cfg.SchemaName)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("target: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("Load succeeded on malformed yaml, want error")
	}
}
