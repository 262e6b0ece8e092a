package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"tillbook/internal/config"
)

// LoadConfigFile reads configuration from a YAML file. Deployments that prefer
// environment variables use config.Load instead; main falls back to it when
// the file does not exist.
func LoadConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
