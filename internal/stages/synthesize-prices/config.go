// internal/stages/synthesize-prices/config.go
package synthesizeprices

import "opportunity-research/internal/common/config"

type Config struct {
	MaxTokens int
}

func ConfigFrom(cfg config.StageConfig) *Config {
	return &Config{
		MaxTokens: cfg.MaxTokens,
	}
}
