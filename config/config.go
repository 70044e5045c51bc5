// Package config loads studio settings from a yaml file with sane defaults
// for everything that is omitted.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trijayaagung/armada-studio/storage"
)

type Brand struct {
	Name   string `yaml:"name"`
	Credit string `yaml:"credit"`
}

type Config struct {
	Listen       string         `yaml:"listen"`
	DataDir      string         `yaml:"data_dir"`
	ExportWidth  int            `yaml:"export_width"`
	ExportHeight int            `yaml:"export_height"`
	Brand        Brand          `yaml:"brand"`
	Storage      storage.Config `yaml:"storage"`
}

func Default() *Config {
	return &Config{
		Listen:       ":8067",
		DataDir:      "data",
		ExportWidth:  1920,
		ExportHeight: 1080,
		Brand: Brand{
			Name:   "PT. Trijaya Agung Lestari",
			Credit: "PT. Trijaya Agung Lestari",
		},
		Storage: storage.Config{Type: "memory"},
	}
}

// Load reads path and overlays it onto the defaults. A missing file is not
// an error, the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "Cannot read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Cannot parse config %q", path)
	}
	if cfg.ExportWidth <= 0 || cfg.ExportHeight <= 0 {
		return nil, errors.Errorf("Invalid export size %dx%d", cfg.ExportWidth, cfg.ExportHeight)
	}
	return cfg, nil
}
