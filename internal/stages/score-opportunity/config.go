// internal/stages/score-opportunity/config.go
package scoreopportunity

import "opportunity-research/internal/common/config"

type Config struct {
	MaxTokens int
}

func ConfigFrom(cfg config.StageConfig) *Config {
	return &Config{
		MaxTokens: cfg.MaxTokens,
	}
}
