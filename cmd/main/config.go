package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/neurofin/website/pkg/feed"
)

const (
	sourceFile     = "file"
	sourceAppwrite = "appwrite"
)

// ServerConfig holds the configuration for the HTTP servers and local storage.
type ServerConfig struct {
	SiteAddr        string `json:"site_addr"`
	ApiAddr         string `json:"api_addr"`
	LogLevel        string `json:"log_level"`
	DatabasePath    string `json:"database_path"`
	Watch           bool   `json:"watch"`
	WatchDebounceMs int    `json:"watch_debounce_ms"`
}

// SiteConfig describes the public site: where it lives and what it publishes.
type SiteConfig struct {
	Origin       string       `json:"origin"`
	ManifestPath string       `json:"manifest_path"`
	Channel      feed.Channel `json:"channel"`
}

// ContentConfig selects where blog posts are read from.
type ContentConfig struct {
	Source               string `json:"source"`
	PostsPath            string `json:"posts_path"`
	AppwriteDatabaseID   string `json:"appwrite_database_id"`
	AppwriteCollectionID string `json:"appwrite_collection_id"`
	AppwriteLimit        int    `json:"appwrite_limit"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server  *ServerConfig  `json:"server_config"`
	Site    *SiteConfig    `json:"site_config"`
	Content *ContentConfig `json:"content_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		SiteAddr:        ":3000",
		ApiAddr:         ":3001",
		LogLevel:        "info",
		DatabasePath:    "./data/neurofin.db",
		Watch:           false,
		WatchDebounceMs: 250,
	}
}

// DefaultSiteConfig points at the production origin and the SvelteKit build output.
func DefaultSiteConfig() *SiteConfig {
	const origin = "https://neurofin.cloud"
	return &SiteConfig{
		Origin:       origin,
		ManifestPath: "./build/server/manifest.json",
		Channel:      feed.DefaultChannel(origin),
	}
}

// DefaultContentConfig reads posts from the YAML file shipped with the site.
func DefaultContentConfig() *ContentConfig {
	return &ContentConfig{
		Source:               sourceFile,
		PostsPath:            "./content/posts.yaml",
		AppwriteDatabaseID:   "site",
		AppwriteCollectionID: "posts",
		AppwriteLimit:        100,
	}
}

// DefaultConfig returns a Config with every section set to its defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServerConfig(),
		Site:    DefaultSiteConfig(),
		Content: DefaultContentConfig(),
	}
}

// Validate reports the first setting that would keep the server from starting.
func (c *Config) Validate() error {
	if c.Server == nil || c.Site == nil || c.Content == nil {
		return errors.New("config is missing a section")
	}
	if !strings.HasPrefix(c.Site.Origin, "http://") && !strings.HasPrefix(c.Site.Origin, "https://") {
		return fmt.Errorf("site origin %q must be an absolute http(s) URL", c.Site.Origin)
	}
	if c.Site.ManifestPath == "" {
		return errors.New("site manifest_path is required")
	}
	switch c.Content.Source {
	case sourceFile:
		if c.Content.PostsPath == "" {
			return errors.New("content posts_path is required for the file source")
		}
	case sourceAppwrite:
		if c.Content.AppwriteDatabaseID == "" || c.Content.AppwriteCollectionID == "" {
			return errors.New("content appwrite_database_id and appwrite_collection_id are required for the appwrite source")
		}
	default:
		return fmt.Errorf("unknown content source %q", c.Content.Source)
	}
	return nil
}

// clone returns a deep copy so callers can't reach into the manager's state.
func (c *Config) clone() Config {
	server := *c.Server
	site := *c.Site
	cont := *c.Content
	return Config{Server: &server, Site: &site, Content: &cont}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	config.Site.Origin = strings.TrimSuffix(config.Site.Origin, "/")
	return config, nil
}

// ConfigManager handles thread-safe access to the configuration and its file.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetLogger replaces the bootstrap logger.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.clone()
}

// Update validates newConfig, saves it to disk and makes it current.
// Most settings only take effect after a restart.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(&newConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	next := newConfig.clone()
	cm.config = &next
	cm.logger.Info("Configuration saved", "path", cm.configPath)
	return nil
}
