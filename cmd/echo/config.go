package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is ~/.config/secretecho/config.toml; flags override it.
type fileConfig struct {
	Server    string `toml:"server"`
	Email     string `toml:"email"`
	Password  string `toml:"password"`
	Username  string `toml:"username"`
	CachePath string `toml:"cache_path"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "secretecho.toml"
	}
	return filepath.Join(dir, "secretecho", "config.toml")
}

func defaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "secretecho-cache.db"
	}
	return filepath.Join(dir, "secretecho", "cache.db")
}

func loadConfig(path string) fileConfig {
	cfg := fileConfig{
		Server:    "http://localhost:5000",
		CachePath: defaultCachePath(),
	}
	// A missing config file is fine; flags may carry everything.
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	_, _ = toml.DecodeFile(path, &cfg)
	if cfg.Server == "" {
		cfg.Server = "http://localhost:5000"
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultCachePath()
	}
	return cfg
}
