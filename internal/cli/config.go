package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the bookctl configuration file.
//
//	catalog:
//	  base_url: https://books.example.com
//	  timeout: 10s
//	  rps: 5
//	output:
//	  format: text
//	logging:
//	  level: warn
type Config struct {
	Catalog struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		RPS       float64       `yaml:"rps"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"catalog"`
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfigPath returns ~/.bookshelf/bookctl.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bookshelf", "bookctl.yaml"), nil
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Output.Format = formatText
	cfg.Logging.Level = "warn"

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
