package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Telegram  TelegramConfig  `mapstructure:"telegram"  validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Practice  PracticeConfig  `mapstructure:"practice"  validate:"required"`
	Broadcast BroadcastConfig `mapstructure:"broadcast" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains authentication settings for the admin API and the
// in-chat admin commands.
type AuthConfig struct {
	// JWTSecret signs admin API tokens. Rotating it invalidates all
	// outstanding sessions.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes bounds how long an admin session lives before
	// re-login.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// AdminSecretHash is the bcrypt hash of the shared admin secret checked
	// by POST /api/admin/login. Generate with cmd/hash-generator.
	AdminSecretHash string `mapstructure:"admin_secret_hash" validate:"required"`

	// AdminLearnerIDs lists chat identities allowed to run /grant and
	// /revoke from inside the bot. May be empty when admins only use the
	// HTTP API.
	AdminLearnerIDs []string `mapstructure:"admin_learner_ids"`
}

// TelegramConfig contains Telegram bot settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" validate:"required"`

	// APIEndpoint overrides the Telegram API base URL, used by tests and
	// self-hosted bot API deployments. Empty means the public endpoint.
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey         string `mapstructure:"gemini_api_key"         validate:"required"`
	ModelName            string `mapstructure:"model_name"             validate:"required"`
	MaxRetries           int    `mapstructure:"max_retries"            validate:"gte=0"`
	PromptTimeoutSeconds int    `mapstructure:"prompt_timeout_seconds" validate:"required,gt=0"`
}

// PracticeConfig tunes the task lifecycle and objective selection.
type PracticeConfig struct {
	// AbandonAfterMinutes is the abandonment window: a pending task older
	// than this flips to abandoned on the learner's next interaction.
	AbandonAfterMinutes int `mapstructure:"abandon_after_minutes" validate:"required,gt=0"`

	// ExhaustionPolicy decides what happens when a learner has seen every
	// objective in a type's pool: "reuse" serves the least recently used
	// objective again, "reset" clears the history and starts over.
	ExhaustionPolicy string `mapstructure:"exhaustion_policy" validate:"required,oneof=reuse reset"`

	// CandidateBatchSize is how many fresh objectives to request from the
	// candidate source per generation call.
	CandidateBatchSize int `mapstructure:"candidate_batch_size" validate:"required,gt=0"`

	// MaxPickAttempts bounds how many candidate batches the picker requests
	// before treating the pool as exhausted for this interaction.
	MaxPickAttempts int `mapstructure:"max_pick_attempts" validate:"required,gt=0"`

	// HistoryWindowDays bounds how far back task records feed selection
	// weighting and progress reports.
	HistoryWindowDays int `mapstructure:"history_window_days" validate:"required,gt=0"`

	// RateLimitPer5M caps webhook interactions per learner per five minutes.
	RateLimitPer5M int `mapstructure:"rate_limit_per_5m" validate:"required,gt=0"`
}

// BroadcastConfig sizes the daily-invite fan-out worker pool.
type BroadcastConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
}
