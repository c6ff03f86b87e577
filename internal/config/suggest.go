package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/mkellner/basis/internal/suggest"
)

// LoadSuggestConfig loads the suggestion provider settings. Precedence:
//
//  1. Viper configuration (config file or BASIS_ env vars)
//  2. The OPENAI_API_KEY environment variable for the key
//
// An empty provider means suggestions are disabled.
func LoadSuggestConfig() (string, suggest.Config) {
	provider := viper.GetString("suggest.provider")

	cfg := suggest.Config{
		APIKey:      viper.GetString("suggest.api_key"),
		Model:       viper.GetString("suggest.model"),
		BaseURL:     viper.GetString("suggest.base_url"),
		Temperature: viper.GetFloat64("suggest.temperature"),
		MaxTokens:   viper.GetInt("suggest.max_tokens"),
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return provider, cfg
}
