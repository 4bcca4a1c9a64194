package config

import (
	"fmt"
	"os"

	"github.com/govbr-pades/pades/sign"
	"gopkg.in/yaml.v3"
)

var (
	DefaultLocation string = "./pdfsign.yaml" // Default location of the config file
	Settings        Config                    // Initialized once inside Read method Settings are stored in memory.
)

// Config is the root of the config
type Config struct {
	Info sign.SignDataSignatureInfo `yaml:"info"`
	TSA  sign.TSA                   `yaml:"tsa"`
}

// Read loads configuration from a YAML file at configfile into the package-level
// Settings variable. It returns an error instead of terminating the process so
// callers embedding this package keep control over failure handling.
func Read(configfile string) error {
	data, err := os.ReadFile(configfile)
	if err != nil {
		return fmt.Errorf("config file is missing: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	Settings = c
	return nil
}
