package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LoadedFiles    []string        `yaml:"-"` // Track all files loaded for this config
	Include        []string        `yaml:"include"`
	Debug          bool            `yaml:"debug"`
	MaxConnections int             `yaml:"maxConnections"`
	HotReload      bool            `yaml:"hotReload"`
	Paths          PathsConfig     `yaml:"paths"`
	Loggers        []LoggerConfig  `yaml:"loggers"`
	Listeners      ListenersConfig `yaml:"listeners"`
	Telnet         TelnetConfig    `yaml:"telnet"`
}

type PathsConfig struct {
	Data string `yaml:"data"`
}

type LoggerConfig struct {
	Stdout     bool   `yaml:"stdout,omitempty"`
	File       string `yaml:"file,omitempty"`
	Level      string `yaml:"level"`
	Source     bool   `yaml:"source"`
	HideTime   bool   `yaml:"hideTime,omitempty"`
	TimeFormat string `yaml:"timeFormat,omitempty"`
}

type ListenersConfig struct {
	Telnet  TelnetListenerConfig `yaml:"telnet"`
	Metrics MetricsConfig        `yaml:"metrics"`
}

type TelnetListenerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Addr returns the host:port to listen on.
func (c TelnetListenerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

func Load(filename string) (*Config, error) {
	// Start with a base config
	cfg := &Config{
		LoadedFiles: []string{},
	}

	// Keep track of processed files to avoid infinite loops
	processed := make(map[string]bool)

	err := loadRecursive(filename, cfg, processed)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRecursive(filename string, cfg *Config, processed map[string]bool) error {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	if processed[absPath] {
		return nil // Already processed
	}
	processed[absPath] = true
	cfg.LoadedFiles = append(cfg.LoadedFiles, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}

	// Expand environment variables in the YAML content
	expandedData := []byte(os.ExpandEnv(string(data)))

	// Includes load first so this file's values win
	var tempCfg struct {
		Include []string `yaml:"include"`
	}
	if err := yaml.Unmarshal(expandedData, &tempCfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", absPath, err)
	}

	baseDir := filepath.Dir(absPath)
	for _, includePath := range tempCfg.Include {
		// Resolve relative paths relative to the current config file
		fullPath := includePath
		if !filepath.IsAbs(includePath) {
			fullPath = filepath.Join(baseDir, includePath)
		}

		if err := loadRecursive(fullPath, cfg, processed); err != nil {
			return fmt.Errorf("failed to load included config %s: %w", fullPath, err)
		}
	}

	if err := yaml.Unmarshal(expandedData, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", absPath, err)
	}

	return nil
}
