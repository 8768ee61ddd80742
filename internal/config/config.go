// Package config holds viewer settings (viper-backed: defaults, optional
// config file, environment, flag overrides) and the stream list loader.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	StreamFile string
	Width      int
	Height     int
	Fullscreen bool
	Overlay    bool
	LogLevel   string

	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// New returns a viper instance with defaults and environment binding.
// Settings resolve in the usual order: flag > env (MOSAIC_*) > config
// file (mosaic.yaml) > default.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("streams.file", "streams.txt")
	v.SetDefault("window.size", "1920x1080")
	v.SetDefault("fullscreen", false)
	v.SetDefault("overlay", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("reconnect.initial", time.Second)
	v.SetDefault("reconnect.max", 30*time.Second)

	v.SetEnvPrefix("mosaic")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mosaic")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.mosaic")
	_ = v.ReadInConfig() // config file is optional

	return v
}

// Resolve extracts and validates the runtime configuration.
func Resolve(v *viper.Viper) (Config, error) {
	w, h, err := ParseWindowSize(v.GetString("window.size"))
	if err != nil {
		return Config{}, err
	}
	return Config{
		StreamFile:       v.GetString("streams.file"),
		Width:            w,
		Height:           h,
		Fullscreen:       v.GetBool("fullscreen"),
		Overlay:          v.GetBool("overlay"),
		LogLevel:         v.GetString("log.level"),
		ReconnectInitial: v.GetDuration("reconnect.initial"),
		ReconnectMax:     v.GetDuration("reconnect.max"),
	}, nil
}

// ParseWindowSize parses a "WIDTHxHEIGHT" string such as "1280x720".
func ParseWindowSize(s string) (w, h int, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: window size %q: want WIDTHxHEIGHT", s)
	}
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("config: window size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("config: window size %q: dimensions must be positive", s)
	}
	return w, h, nil
}
