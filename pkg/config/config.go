// Package config loads the canonical-store connection parameters from the
// environment and the source-fetch plan from sources.yml (§6.1, §6.2).
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EdgeDBConfig holds the opaque connection parameters for the canonical
// store (§6.2). Field names follow the teacher's struct-tag-driven env
// binding convention (pkg/config), swapping caarlos0/env's `envconfig` tag
// set for this project's four variables.
type EdgeDBConfig struct {
	User string `env:"SONAMUTE_EDGEDB_USER,required"`
	Pass string `env:"SONAMUTE_EDGEDB_PASS,required"`
	Host string `env:"SONAMUTE_EDGEDB_HOST" envDefault:"localhost"`
	Port int    `env:"SONAMUTE_EDGEDB_PORT" envDefault:"5656"`
}

// LoadEdgeDBConfig loads a .env file (if present, without overriding
// already-set variables) and parses the canonical-store connection
// parameters. A missing required variable is a programmer-invariant
// violation (§7): the caller should treat the returned error as fatal.
func LoadEdgeDBConfig() (EdgeDBConfig, error) {
	_ = godotenv.Load() // missing .env is not an error; env may be set directly

	var cfg EdgeDBConfig
	if err := env.Parse(&cfg); err != nil {
		return EdgeDBConfig{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// SourceAction describes one entry of sources.yml: fetch `Source` data
// rooted at `Root`, sending it either to the canonical store (`ToDB`) or to
// a JSON file at `Output` (§6.1).
type SourceAction struct {
	Source string `yaml:"source"`
	Root   string `yaml:"root"`
	ToDB   bool   `yaml:"to_db"`
	Output string `yaml:"output,omitempty"`
}

// LoadSourcesFile parses a sources.yml document into a plan of source
// actions. An action with neither ToDB nor a non-empty Output is a
// configuration error (§6.1, exit code 2).
func LoadSourcesFile(path string) ([]SourceAction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var actions []SourceAction
	if err := yaml.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	for i, a := range actions {
		if !a.ToDB && a.Output == "" {
			return nil, fmt.Errorf("config: source %d (%s): to_db is false but output is empty", i, a.Source)
		}
	}
	return actions, nil
}
