package config

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/marketmap/pkg/errors"
)

// AppName names the application directories.
const AppName = "marketmap"

// FileName is the config file name inside ConfigDir.
const FileName = "config.toml"

// CacheDir returns the cache directory using XDG standard (~/.cache/marketmap/).
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// ConfigDir returns the config directory using XDG standard (~/.config/marketmap/).
func ConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

// Resolve returns the config file to load. An explicit path must exist.
// Otherwise the file in ConfigDir is used when present; "" means no file,
// run on defaults.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", explicit)
		}
		return explicit, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", nil
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// LoadFile resolves and loads the config. It returns the defaults and an
// empty path when no file is found.
func LoadFile(explicit string) (Config, string, error) {
	path, err := Resolve(explicit)
	if err != nil {
		return Config{}, "", err
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}
