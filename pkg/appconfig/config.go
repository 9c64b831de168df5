// Package appconfig loads the application configuration applied during
// adapter bootstrap.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// Graphics holds display preferences. Adapters that cannot honor a
// preference ignore it; the bootstrap logs what was dropped.
type Graphics struct {
	VSync      bool
	MaxFPS     int
	Fullscreen bool
}

// Config is the application configuration.
type Config struct {
	// Name tags log output and the main loop's host application.
	Name string
	// LogVerbosity is the maximum logr V-level emitted by the
	// bootstrap's default logger.
	LogVerbosity int
	Graphics     Graphics
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Name:         "appshell",
		LogVerbosity: 0,
		Graphics: Graphics{
			VSync:  true,
			MaxFPS: 60,
		},
	}
}

type fileConfig struct {
	Name         string `toml:"name"`
	LogVerbosity int    `toml:"log-verbosity"`
	Graphics     struct {
		VSync      bool `toml:"vsync"`
		MaxFPS     int  `toml:"max-fps"`
		Fullscreen bool `toml:"fullscreen"`
	} `toml:"graphics"`
}

// Load reads path and overlays its defined keys onto Default. A missing
// file yields the defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load app config: %w", err)
	}

	if meta.IsDefined("name") && raw.Name != "" {
		cfg.Name = raw.Name
	}
	if meta.IsDefined("log-verbosity") {
		cfg.LogVerbosity = raw.LogVerbosity
	}
	if meta.IsDefined("graphics", "vsync") {
		cfg.Graphics.VSync = raw.Graphics.VSync
	}
	if meta.IsDefined("graphics", "max-fps") {
		if raw.Graphics.MaxFPS < 0 {
			return Config{}, fmt.Errorf("load app config: negative max-fps %d", raw.Graphics.MaxFPS)
		}
		cfg.Graphics.MaxFPS = raw.Graphics.MaxFPS
	}
	if meta.IsDefined("graphics", "fullscreen") {
		cfg.Graphics.Fullscreen = raw.Graphics.Fullscreen
	}

	return cfg, nil
}
