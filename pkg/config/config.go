// Package config loads an instance's configuration file and resolves
// which instance to run from the CLI flag or the SIODB_INSTANCE
// environment variable, the way cmd/siodb_iomgr's flags do.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// instanceEnvVar is consulted when no instance name is given on the
// command line.
const instanceEnvVar = "SIODB_INSTANCE"

// defaultInstanceRoot is where an instance's config file and data
// directory live unless overridden.
const defaultInstanceRoot = "/etc/siodb/instances"

// InstanceOptions is the on-disk shape of an instance's config file.
type InstanceOptions struct {
	DataDir           string `yaml:"data_dir"`
	CipherID          string `yaml:"cipher_id"`
	LogLevel          string `yaml:"log_level"`
	DataBlockAreaSize uint32 `yaml:"data_block_area_size"`
	MaxColumnCacheSize int   `yaml:"max_column_cache_size"`
}

// defaults fills in the values an instance config may omit.
func defaults() InstanceOptions {
	return InstanceOptions{
		CipherID:           "none",
		LogLevel:           "info",
		DataBlockAreaSize:  1 << 20,
		MaxColumnCacheSize: 64,
	}
}

// ResolveInstanceName returns the instance name to use: flagValue if
// non-empty, else SIODB_INSTANCE, else an error. Mirrors the precedence
// order the CLI documents for --instance.
func ResolveInstanceName(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(instanceEnvVar); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("config: no instance name given and %s is not set", instanceEnvVar)
}

// ConfigPath returns the default config file path for a named instance.
func ConfigPath(instanceName string) string {
	return filepath.Join(defaultInstanceRoot, instanceName, "config")
}

// Load reads and parses the YAML config file at path, applying defaults
// for anything left unset.
func Load(path string) (InstanceOptions, error) {
	opts := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return InstanceOptions{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return InstanceOptions{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if opts.DataDir == "" {
		return InstanceOptions{}, fmt.Errorf("config: %s: data_dir is required", path)
	}
	return opts, nil
}
