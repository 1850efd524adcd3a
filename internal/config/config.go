package config

// #region imports
import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// #endregion

// #region config

// Config is the full runtime configuration, loaded from an optional YAML
// file with environment overrides on top.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Provider  ProviderConfig  `yaml:"provider"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ProviderConfig selects backends and models.
type ProviderConfig struct {
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	PrimaryModel  string `yaml:"primary_model"`
	AdvancedModel string `yaml:"advanced_model"`
	OllamaModel   string `yaml:"ollama_model"`
}

// PipelineConfig tunes turn generation.
type PipelineConfig struct {
	Temperature       float32 `yaml:"temperature"`
	FlavorTemperature float32 `yaml:"flavor_temperature"`
	MaxMemoryMatches  int     `yaml:"max_memory_matches"`
}

// SchedulerConfig tunes task execution.
type SchedulerConfig struct {
	TaskTimeoutSeconds int `yaml:"task_timeout_seconds"`
}

// TaskTimeout converts the configured timeout to a duration.
func (c SchedulerConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		DBPath: "story_state.db",
		Provider: ProviderConfig{
			PrimaryModel:  "gemini-2.5-flash",
			AdvancedModel: "gemini-2.5-pro",
			OllamaModel:   "llama3.1",
		},
		Pipeline: PipelineConfig{
			Temperature:       0.8,
			FlavorTemperature: 1.2,
			MaxMemoryMatches:  10,
		},
		Scheduler: SchedulerConfig{TaskTimeoutSeconds: 120},
	}
}

// #endregion config

// #region load

// Load reads the YAML file at path (missing file is not an error) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env only.
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.DBPath = envOr("STORY_DB", cfg.DBPath)
	cfg.Provider.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.Provider.GeminiAPIKey)
	cfg.Provider.PrimaryModel = envOr("STORY_PRIMARY_MODEL", cfg.Provider.PrimaryModel)
	cfg.Provider.AdvancedModel = envOr("STORY_ADVANCED_MODEL", cfg.Provider.AdvancedModel)
	cfg.Provider.OllamaModel = envOr("STORY_OLLAMA_MODEL", cfg.Provider.OllamaModel)
	if v := os.Getenv("STORY_TASK_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse STORY_TASK_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Scheduler.TaskTimeoutSeconds = n
	}

	return cfg, nil
}

// #endregion load

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
