// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	capacity := cfg.Engine.BaseCapacity
//	policy, _ := cfg.Engine.Policy()
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
)

// Config represents the entire application configuration
type Config struct {
	Engine        EngineConfig        `yaml:"engine"`
	Participants  []ParticipantConfig `yaml:"participants"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// EngineConfig holds allocation engine defaults
type EngineConfig struct {
	BaseCapacity  int    `yaml:"base_capacity"`
	DefaultPolicy string `yaml:"default_policy"`
	DefaultChunk  int    `yaml:"default_chunk"`
}

// ParticipantConfig seeds one participant
type ParticipantConfig struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	CurrentLoad int    `yaml:"current_load"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Policy parses the configured default policy. An empty value means unconstrained.
func (e EngineConfig) Policy() (allocator.Policy, error) {
	if e.DefaultPolicy == "" {
		return allocator.PolicyUnconstrained, nil
	}
	return allocator.ParsePolicy(e.DefaultPolicy)
}

// EngineParticipants converts the participant seed into engine participants.
func (c *Config) EngineParticipants() []allocator.Participant {
	out := make([]allocator.Participant, len(c.Participants))
	for i, p := range c.Participants {
		out[i] = allocator.Participant{ID: p.ID, Name: p.Name, CurrentLoad: p.CurrentLoad}
	}
	return out
}

// Validate checks the configuration for values the engine cannot accept
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.BaseCapacity < 0 {
		errs = append(errs, fmt.Errorf("engine.base_capacity must be >= 0, got %d", c.Engine.BaseCapacity))
	}
	if c.Engine.DefaultChunk < 0 {
		errs = append(errs, fmt.Errorf("engine.default_chunk must be >= 0, got %d", c.Engine.DefaultChunk))
	}
	if _, err := c.Engine.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("engine.default_policy: %w", err))
	}

	seen := make(map[int]bool, len(c.Participants))
	for _, p := range c.Participants {
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("participant id %d is duplicated", p.ID))
		}
		seen[p.ID] = true
		if p.CurrentLoad < 0 {
			errs = append(errs, fmt.Errorf("participant %d has negative current_load %d", p.ID, p.CurrentLoad))
		}
	}
	return errors.Join(errs...)
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${ALLOC_BASE_CAPACITY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultParticipants is the seed used when no participants are configured
func DefaultParticipants() []ParticipantConfig {
	return []ParticipantConfig{
		{ID: 1, Name: "Alice", CurrentLoad: 3},
		{ID: 2, Name: "Bob", CurrentLoad: 5},
		{ID: 3, Name: "Charlie", CurrentLoad: 2},
		{ID: 4, Name: "David", CurrentLoad: 4},
		{ID: 5, Name: "Eve", CurrentLoad: 1},
	}
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		Engine: EngineConfig{
			BaseCapacity:  getEnvInt("ALLOC_BASE_CAPACITY", 20),
			DefaultPolicy: getEnv("ALLOC_DEFAULT_POLICY", "unconstrained"),
			DefaultChunk:  getEnvInt("ALLOC_DEFAULT_CHUNK", 0),
		},
		Participants: DefaultParticipants(),
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "maven"),
			},
			Metrics: MetricsConfig{
				Enabled: getEnvBool("METRICS_ENABLED", true),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		if len(cfg.Participants) == 0 {
			cfg.Participants = DefaultParticipants()
		}
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	}
	return fallback
}
