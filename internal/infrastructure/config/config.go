package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CurrentVersion is bumped when the config schema changes shape.
const CurrentVersion = 1

// Config holds the CLI configuration
type Config struct {
	Version     int    `json:"version"`
	APIEndpoint string `json:"api_endpoint"`
	APIKey      string `json:"api_key,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	StorePath   string `json:"store_path,omitempty"`
	CacheLimit  int    `json:"cache_limit"`
	Debug       bool   `json:"debug"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		APIEndpoint: "https://api.lexiscan.ai",
		CacheLimit:  20,
		Debug:       false,
	}
}

// LoadConfig loads configuration from the config file, then applies
// environment overrides. A missing file yields the defaults; a corrupt file
// is an error so a typo does not silently reset settings.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}
	if config.Version > CurrentVersion {
		return nil, fmt.Errorf("config file version %d is newer than supported version %d", config.Version, CurrentVersion)
	}

	applyEnvOverrides(config)

	if config.CacheLimit <= 0 {
		config.CacheLimit = DefaultConfig().CacheLimit
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if endpoint := os.Getenv("LEXISCAN_API_URL"); endpoint != "" {
		config.APIEndpoint = endpoint
	}
	if apiKey := os.Getenv("LEXISCAN_API_KEY"); apiKey != "" {
		config.APIKey = apiKey
	}
	if accountID := os.Getenv("LEXISCAN_ACCOUNT_ID"); accountID != "" {
		config.AccountID = accountID
	}
	if storePath := os.Getenv("LEXISCAN_STORE_PATH"); storePath != "" {
		config.StorePath = storePath
	}
	if limit := os.Getenv("LEXISCAN_CACHE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			config.CacheLimit = n
		}
	}
	if os.Getenv("LEXISCAN_DEBUG") == "true" {
		config.Debug = true
	}
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	config.Version = CurrentVersion
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Path returns the path to the config file.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "lexiscan", "config.json"), nil
}
