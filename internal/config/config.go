// Package config loads the yaml configuration file and applies defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tenderscope/tenderscope/internal/model"
)

// EnvConfigPath names the environment variable that selects the config file
// when no --config flag is given.
const EnvConfigPath = "TENDERSCOPE_CONFIG"

// Default returns the built-in configuration used when no file is supplied.
func Default() model.Config {
	var cfg model.Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads a yaml config file and applies defaults. An empty path falls
// back to the TENDERSCOPE_CONFIG environment variable, and to the built-in
// defaults when that is unset.
func Load(path string) (model.Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *model.Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Store.Path == "" {
		c.Store.Path = "tenderscope.db"
	}
	if c.Cache.MaxAgeHours <= 0 {
		c.Cache.MaxAgeHours = 24
	}
	if c.Cache.HTMLMaxAgeSeconds <= 0 {
		c.Cache.HTMLMaxAgeSeconds = 3600
	}
	if c.Portal.BaseURL == "" {
		c.Portal.BaseURL = "https://www.mercadopublico.cl"
	}
	if c.Portal.TimeoutSec <= 0 {
		c.Portal.TimeoutSec = 60
	}
	if c.Portal.MaxDocuments <= 0 {
		c.Portal.MaxDocuments = 3
	}
	if c.Portal.MaxPages <= 0 {
		c.Portal.MaxPages = 5
	}
	if c.OCR.TimeoutSec <= 0 {
		c.OCR.TimeoutSec = 120
	}
	if c.OCR.APIKeyEnv == "" {
		c.OCR.APIKeyEnv = "MISTRAL_API_KEY"
	}
	if c.Agent.BaseURL == "" {
		c.Agent.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.Agent.APIKeyEnv == "" {
		c.Agent.APIKeyEnv = "OPENROUTER_API_KEY"
	}
	if c.Agent.Model == "" {
		c.Agent.Model = "google/gemini-2.5-flash-lite-preview-09-2025"
	}
	if c.Agent.Temperature == 0 {
		c.Agent.Temperature = 0.7
	}
	if c.Agent.TimeoutSec <= 0 {
		c.Agent.TimeoutSec = 300
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = 25
	}
	if c.Classifier.FallbackCount <= 0 {
		c.Classifier.FallbackCount = 5
	}
	if c.Replay.Speed <= 0 {
		c.Replay.Speed = 4.0
	}
	if c.Replay.DefaultGapMS <= 0 {
		c.Replay.DefaultGapMS = 250
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
