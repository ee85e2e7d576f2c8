package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - TOURCACHE_CONFIG_PATH: config file location (default: ~/.config/tourcache.toml)
//   - TOURCACHE_HOME: base directory for tourcache data (default: ~/.local/share/tourcache)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking TOURCACHE_CONFIG_PATH
// first, then falling back to the default ~/.config/tourcache.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("TOURCACHE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "tourcache.toml"), nil
}

// getBaseDir returns the base directory for tourcache data, checking
// TOURCACHE_HOME first, then falling back to the XDG default.
func getBaseDir() (string, error) {
	if path := os.Getenv("TOURCACHE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "tourcache"), nil
}
