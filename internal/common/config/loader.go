// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges an environment-specific overlay
// (config.<env>.yaml) and environment variables, and returns the validated
// configuration.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Allow overrides like COMPLETION_API_KEY or DATABASE_POSTGRES_HOST.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or any ancestor holding
// go.mod, so tests running from package directories pick it up too.
func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if godotenv.Load(path) == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "research-service"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 2048
	}
	if cfg.Completion.MaxRetries == 0 {
		cfg.Completion.MaxRetries = 3
	}
	if cfg.Completion.InitialBackoffMS == 0 {
		cfg.Completion.InitialBackoffMS = 1000
	}

	if cfg.Providers.ResultsPerPage == 0 {
		cfg.Providers.ResultsPerPage = 10
	}
	if cfg.Providers.TimeoutMS == 0 {
		cfg.Providers.TimeoutMS = 15000
	}

	if cfg.Stages.ExtractMetadata.MaxTokens == 0 {
		cfg.Stages.ExtractMetadata.MaxTokens = 2048
	}
	if cfg.Stages.SynthesizePrices.MaxTokens == 0 {
		cfg.Stages.SynthesizePrices.MaxTokens = 1024
	}
	if cfg.Stages.ScoreOpportunity.MaxTokens == 0 {
		cfg.Stages.ScoreOpportunity.MaxTokens = 3072
	}

	if cfg.Database.Redis.CacheTTL == 0 {
		cfg.Database.Redis.CacheTTL = 900
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "opportunity-assessments"
	}
}

func validate(cfg *Config) error {
	if cfg.Completion.BaseURL == "" {
		return fmt.Errorf("completion.base_url is required")
	}
	if cfg.Providers.BaseURL == "" {
		return fmt.Errorf("providers.base_url is required")
	}
	if cfg.Completion.MaxRetries < 1 {
		return fmt.Errorf("completion.max_retries must be >= 1")
	}
	return nil
}
