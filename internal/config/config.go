// Package config loads the optional schemaforge.yaml file consulted by the
// CLI for default flag values. The engine itself is configured through
// option structs and never reads files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "schemaforge.yaml"

// Config holds CLI defaults.
type Config struct {
	// Target is the default target dialect: postgres, mysql, sqlite, laravel.
	Target string `yaml:"target"`
	// OutputDir is where generated artifacts are written.
	OutputDir string `yaml:"output_dir"`
	// SchemaName overrides the database schema to introspect.
	SchemaName string `yaml:"schema"`
	// ExcludeTables lists tables skipped during extraction.
	ExcludeTables []string `yaml:"exclude_tables"`
	// Timestamps adds a created_at/updated_at pair to every generated table.
	Timestamps bool `yaml:"timestamps"`
	// SoftDeletes adds a deleted_at marker to every generated table.
	SoftDeletes bool `yaml:"soft_deletes"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Target:    "postgres",
		OutputDir: "migrations",
	}
}

// Load reads schemaforge.yaml from dir, returning defaults when the file
// does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return cfg, nil
}
