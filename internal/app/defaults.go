package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - IVCS_CONFIG_PATH: config file location (default: ~/.config/ivcs.toml)
//   - IVCS_HOME: base directory for ivcs data (default: ~/.local/share/ivcs)
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

func getConfigPath() (string, error) {
	if path := os.Getenv("IVCS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ivcs.toml"), nil
}

// getBaseDir returns the data directory, falling back to the XDG default.
func getBaseDir() (string, error) {
	if path := os.Getenv("IVCS_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ivcs"), nil
}

// DefaultUser is the acting user when neither --user nor the config names one.
func DefaultUser() string {
	for _, env := range []string{"IVCS_USER", "USER", "USERNAME"} {
		if u := os.Getenv(env); u != "" {
			return u
		}
	}
	return ""
}
