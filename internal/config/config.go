// Package config provides YAML-based configuration for the wall server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/holdsvg"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/render"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up next to the executable.
const DefaultFileName = "wallsvg.yaml"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Library   LibraryConfig   `yaml:"library"`
	Render    render.Options  `yaml:"render"`
	HoldTypes []holdtype.Spec `yaml:"holdTypes,omitempty"`
	Advanced  AdvancedConfig  `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCORS"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// LibraryConfig locates route and template files.
type LibraryConfig struct {
	RoutesDirectory string `yaml:"routesDirectory"`
	// TemplatesDirectory overrides the built-in hold templates when set.
	TemplatesDirectory string `yaml:"templatesDirectory,omitempty"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	EnableCompression    bool   `yaml:"enableCompression"`
	CompressionLevel     int    `yaml:"compressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "8M",
		},
		Library: LibraryConfig{
			RoutesDirectory: "./routes",
		},
		Render: render.DefaultOptions(),
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating it with defaults
// when missing.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Speed wall planner configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail at request time.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if err := c.Render.Validate(); err != nil {
		return err
	}
	for _, s := range c.HoldTypes {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if _, ok := parseLevel(c.Advanced.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.Advanced.LogLevel)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dir := os.Getenv("ROUTES_DIR"); dir != "" {
		c.Library.RoutesDirectory = dir
	}
	if dir := os.Getenv("TEMPLATES_DIR"); dir != "" {
		c.Library.TemplatesDirectory = dir
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Library.RoutesDirectory != "" && !filepath.IsAbs(c.Library.RoutesDirectory) {
		c.Library.RoutesDirectory = filepath.Join(configDir, c.Library.RoutesDirectory)
	}
	if c.Library.TemplatesDirectory != "" && !filepath.IsAbs(c.Library.TemplatesDirectory) {
		c.Library.TemplatesDirectory = filepath.Join(configDir, c.Library.TemplatesDirectory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetLogLevel returns the gommon level for Advanced.LogLevel.
func (c *AppConfig) GetLogLevel() log.Lvl {
	lvl, _ := parseLevel(c.Advanced.LogLevel)
	return lvl
}

// HoldTypeRegistry builds the built-in registry with configured overrides.
func (c *AppConfig) HoldTypeRegistry() (*holdtype.Registry, error) {
	reg := holdtype.DefaultRegistry()
	for _, s := range c.HoldTypes {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// TemplateLoader returns the hold template source: the templates directory
// when configured, else the built-in templates.
func (c *AppConfig) TemplateLoader() holdsvg.Loader {
	if c.Library.TemplatesDirectory == "" {
		return holdsvg.DefaultLoader()
	}
	return holdsvg.FSLoader{FS: os.DirFS(c.Library.TemplatesDirectory)}
}

func parseLevel(s string) (log.Lvl, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, true
	case "", "info":
		return log.INFO, true
	case "warn", "warning":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	}
	return log.INFO, false
}
