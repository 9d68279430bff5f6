package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds all server configuration options. The config file is
// HuJSON (JSON with comments and trailing commas).
type Config struct {
	Addr         string   `json:"addr"`
	DatabaseURL  string   `json:"database_url"`
	PhotoDir     string   `json:"photo_dir"`
	PhotoBaseURL string   `json:"photo_base_url"`
	GCPProject   string   `json:"gcp_project"`
	GCPRegion    string   `json:"gcp_region"`
	Goals        []string `json:"goals,omitempty"`
}

var errConfigInvalid = errors.New("invalid config")

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		PhotoDir:     "photos",
		PhotoBaseURL: "/photos",
	}
}

// LoadConfig loads configuration with the following precedence
// (highest wins): defaults, config file (if path is non-empty or the
// default file exists), environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	mustExist := path != ""
	if path == "" {
		path = "goalbingo.json"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg, parseErr := parseConfig(data)
		if parseErr != nil {
			return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
		}
		cfg = mergeConfig(cfg, fileCfg)
	case os.IsNotExist(err) && !mustExist:
		// Optional default file; fall through to env.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg = applyEnv(cfg)
	return cfg, nil
}

func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Addr != "" {
		base.Addr = overlay.Addr
	}
	if overlay.DatabaseURL != "" {
		base.DatabaseURL = overlay.DatabaseURL
	}
	if overlay.PhotoDir != "" {
		base.PhotoDir = overlay.PhotoDir
	}
	if overlay.PhotoBaseURL != "" {
		base.PhotoBaseURL = overlay.PhotoBaseURL
	}
	if overlay.GCPProject != "" {
		base.GCPProject = overlay.GCPProject
	}
	if overlay.GCPRegion != "" {
		base.GCPRegion = overlay.GCPRegion
	}
	if len(overlay.Goals) > 0 {
		base.Goals = overlay.Goals
	}
	return base
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PHOTO_DIR"); v != "" {
		cfg.PhotoDir = v
	}
	if v := os.Getenv("PHOTO_BASE_URL"); v != "" {
		cfg.PhotoBaseURL = v
	}
	if v := os.Getenv("GCP_PROJECT_ID"); v != "" {
		cfg.GCPProject = v
	}
	if v := os.Getenv("GCP_REGION"); v != "" {
		cfg.GCPRegion = v
	}
	return cfg
}
