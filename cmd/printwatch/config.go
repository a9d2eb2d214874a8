package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/session"
)

const defaultBaseURL = model.DefaultBaseURL

// cliConfig holds the dashboard configuration.
type cliConfig struct {
	BaseURL            string         `mapstructure:"base-url"`
	Session            session.Config `mapstructure:",squash"`
	CaptureDir         string         `mapstructure:"capture-dir"`
	MetricsAddr        string         `mapstructure:"metrics-addr"`
	ReverseScrollWheel bool           `mapstructure:"reverse-scroll-wheel"`
}

// loadCLIConfig merges defaults, the config file, PRINTWATCH_* environment
// variables and the flags set on cmd, in increasing priority.
func loadCLIConfig(configPath string, cmd *cobra.Command) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PRINTWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	d := session.DefaultConfig()
	v.SetDefault("base-url", defaultBaseURL)
	v.SetDefault("video-path", "")
	v.SetDefault("state-interval", d.StateInterval)
	v.SetDefault("frame-interval", d.FrameInterval)
	v.SetDefault("request-timeout", d.RequestTimeout)
	v.SetDefault("start-refresh-delay", d.StartRefreshDelay)
	v.SetDefault("command-refresh-delay", d.CommandRefreshDelay)
	v.SetDefault("capture-dir", "")
	v.SetDefault("metrics-addr", "")
	v.SetDefault("reverse-scroll-wheel", false)

	if cmd != nil {
		for _, name := range []string{"base-url", "video-path", "request-timeout", "capture-dir", "metrics-addr"} {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(name, f); err != nil {
					return cfg, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "printwatch", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("base-url must not be empty")
	}
	if cfg.Session.StateInterval <= 0 || cfg.Session.FrameInterval <= 0 {
		return cfg, fmt.Errorf("poll intervals must be positive (state %s, frame %s)",
			cfg.Session.StateInterval, cfg.Session.FrameInterval)
	}
	return cfg, nil
}
