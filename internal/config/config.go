package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Sheets     SheetsConfig     `mapstructure:"sheets" validate:"required"`
	Scheduling SchedulingConfig `mapstructure:"scheduling" validate:"required"`
	Sync       SyncConfig       `mapstructure:"sync" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel           string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the repository implementation. "memory" keeps all data
	// in process and is meant for local development.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains settings for the gemini sync source. An empty API key
// disables that source type.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name" validate:"required"`
}

// SheetsConfig contains settings for the sheet sync source. An empty API key
// disables that source type.
type SheetsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Range is the A1 range read from the first sheet, header row excluded.
	Range string `mapstructure:"range" validate:"required"`
}

// SchedulingConfig tunes card selection and the interval model.
type SchedulingConfig struct {
	PageSize        int             `mapstructure:"page_size" validate:"required,gt=0"`
	HardIntervals   []time.Duration `mapstructure:"hard_intervals" validate:"required,min=1"`
	MediumIntervals []time.Duration `mapstructure:"medium_intervals" validate:"required,min=1"`
	EasyIntervals   []time.Duration `mapstructure:"easy_intervals" validate:"required,min=1"`
}

// SyncConfig tunes dynamic deck synchronization.
type SyncConfig struct {
	AttemptLimit int           `mapstructure:"attempt_limit" validate:"required,gt=0"`
	Cooldown     time.Duration `mapstructure:"cooldown" validate:"gt=0"`
	// Interval is the period of the automatic sync job.
	Interval     time.Duration `mapstructure:"interval" validate:"gt=0"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
}
