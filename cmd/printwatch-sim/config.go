package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/printwatch/internal/simserver"
)

func loadSimConfig(configPath string) (simserver.Config, error) {
	var cfg simserver.Config

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PRINTWATCH_SIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	d := simserver.DefaultConfig()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("total-frames", d.TotalFrames)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("frame-width", d.FrameWidth)
	v.SetDefault("frame-height", d.FrameHeight)
	v.SetDefault("defect-rate", d.DefectRate)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("console-lines", d.ConsoleLines)
	v.SetDefault("jpeg-quality", d.JPEGQuality)
	v.SetDefault("latency", d.Latency)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "printwatch", "sim.yml"))
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
	if cfg.FPS > simserver.MaxFPS {
		return cfg, fmt.Errorf("invalid fps: %v (max %d)", cfg.FPS, simserver.MaxFPS)
	}
	if cfg.DefectRate < 0 || cfg.DefectRate > 1 {
		return cfg, fmt.Errorf("invalid defect-rate: %v (want 0..1)", cfg.DefectRate)
	}
	return cfg, nil
}
