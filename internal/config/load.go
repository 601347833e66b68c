package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix namespaces the environment variables read by Load, e.g.
// LINGO_DATABASE_URL maps to database.url.
const envPrefix = "LINGO"

// Load reads configuration from an optional config.yaml and from LINGO_*
// environment variables, with environment taking precedence over the file
// and the file over built-in defaults. Returns a validated Config or an
// error describing what is missing or out of range.
func Load() (*Config, error) {
	v := viper.New()

	// Every key needs a default so viper knows about it; AutomaticEnv only
	// resolves keys viper has seen. Required settings default to the zero
	// value and rely on validation to reject an unset result.
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.admin_secret_hash", "")
	v.SetDefault("auth.admin_learner_ids", []string{})

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.api_endpoint", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.5-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.prompt_timeout_seconds", 30)

	v.SetDefault("practice.abandon_after_minutes", 30)
	v.SetDefault("practice.exhaustion_policy", "reuse")
	v.SetDefault("practice.candidate_batch_size", 20)
	v.SetDefault("practice.max_pick_attempts", 8)
	v.SetDefault("practice.history_window_days", 30)
	v.SetDefault("practice.rate_limit_per_5m", 10)

	v.SetDefault("broadcast.worker_count", 4)
	v.SetDefault("broadcast.queue_size", 64)
}
