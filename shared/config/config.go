// Package config loads jsforge settings from an optional YAML file and the
// environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
)

// keyEnv maps a provider to the variable holding its API key.
var keyEnv = map[string]string{
	ProviderGemini:     "GEMINI_API_KEY",
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

type Config struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	WorkDir         string `yaml:"work_dir"`
	APIPort         string `yaml:"api_port"`
	AMQPURL         string `yaml:"amqp_url"`
	HistoryDB       string `yaml:"history_db"`
	DefaultFilename string `yaml:"default_filename"`
}

func defaults() Config {
	return Config{
		Provider:        ProviderGemini,
		WorkDir:         "workspace",
		APIPort:         "8000",
		DefaultFilename: "output.js",
	}
}

// Load reads CONFIG_FILE (if set) and then applies environment overrides.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	overlay(&c.Provider, file.Provider)
	overlay(&c.Model, file.Model)
	overlay(&c.APIKey, file.APIKey)
	overlay(&c.BaseURL, file.BaseURL)
	overlay(&c.WorkDir, file.WorkDir)
	overlay(&c.APIPort, file.APIPort)
	overlay(&c.AMQPURL, file.AMQPURL)
	overlay(&c.HistoryDB, file.HistoryDB)
	overlay(&c.DefaultFilename, file.DefaultFilename)
	return nil
}

func (c *Config) applyEnv() {
	c.Provider = strings.ToLower(env("LLM_PROVIDER", c.Provider))
	c.Model = env("LLM_MODEL", c.Model)
	if name, ok := keyEnv[c.Provider]; ok {
		c.APIKey = env(name, c.APIKey)
	}
	c.BaseURL = env("OPENAI_BASE_URL", c.BaseURL)
	c.WorkDir = env("WORK_DIR", c.WorkDir)
	c.APIPort = env("API_PORT", c.APIPort)
	c.AMQPURL = env("AMQP_URL", c.AMQPURL)
	c.HistoryDB = env("HISTORY_DB", c.HistoryDB)
	c.DefaultFilename = env("DEFAULT_FILENAME", c.DefaultFilename)
}

// Validate reports settings the binaries cannot start without.
func (c Config) Validate() error {
	name, ok := keyEnv[c.Provider]
	if !ok {
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	if c.APIKey == "" {
		return errors.New(name + " not set")
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
