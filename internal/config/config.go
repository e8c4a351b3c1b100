// Package config loads the user configuration file with rendering defaults
// and custom color themes.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/castsvg/internal/asciicast"
	"github.com/dshills/castsvg/internal/logging"
)

// Config holds rendering defaults. Flags override config values; config
// values override built-in defaults.
type Config struct {
	// Template is the default template name.
	Template string `toml:"template"`

	// Theme names a theme from Themes used instead of the cast header
	// theme. Empty means no override.
	Theme string `toml:"theme"`

	// Font is the font family written to the generated stylesheet.
	Font string `toml:"font"`

	// FontSize is the font size in pixels.
	FontSize int `toml:"font-size"`

	// Themes are user-defined color themes.
	Themes map[string]ThemeSpec `toml:"themes"`
}

// ThemeSpec is the on-disk form of a color theme.
type ThemeSpec struct {
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`

	// Palette is a colon-separated list of 8 or 16 '#rrggbb' colors.
	Palette string `toml:"palette"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Template: "gjm8",
		Font:     "DejaVu Sans Mono",
		FontSize: 14,
	}
}

// Path returns the user configuration file location:
// $XDG_CONFIG_HOME/castsvg/config.toml, with ~/.config as the fallback
// base. It returns "" when no home is known.
func Path() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "castsvg", "config.toml")
}

// Load reads the user configuration, layering it over the defaults. A
// missing file is not an error; an unreadable or invalid one logs a
// warning and falls back to the defaults.
func Load(log *logging.Logger) *Config {
	return loadFrom(Path(), log)
}

func loadFrom(path string, log *logging.Logger) *Config {
	cfg := Default()
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) && log != nil {
			log.Warnf("cannot read configuration %s: %v", path, err)
		}
		return cfg
	}

	user := Default()
	if err := toml.Unmarshal(data, user); err != nil {
		if log != nil {
			log.Warnf("invalid configuration %s: %v", path, err)
			log.Warnf("falling back to default configuration")
		}
		return cfg
	}
	return user
}

// ResolveTheme returns the named user theme, or nil if the name is unknown
// or the theme is invalid.
func (c *Config) ResolveTheme(name string, log *logging.Logger) *asciicast.Theme {
	spec, ok := c.Themes[name]
	if !ok {
		return nil
	}
	theme, err := asciicast.NewTheme(spec.Foreground, spec.Background, spec.Palette)
	if err != nil {
		if log != nil {
			log.Warnf("invalid theme %q: %v", name, err)
		}
		return nil
	}
	return theme
}
