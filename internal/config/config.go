package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Remote backend
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Provider credentials
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`

	// Local cache
	LocalDBPath string `env:"WHITECARD_DB_PATH" envDefault:"whitecard.db"`

	// Identity. Auth is handled outside the core; a stable opaque user id
	// either becomes available here or stays empty (signed out).
	UserID      string `env:"WHITECARD_USER_ID"`
	UserEmail   string `env:"WHITECARD_USER_EMAIL"`
	UserName    string `env:"WHITECARD_USER_NAME"`
	UserAvatar  string `env:"WHITECARD_USER_AVATAR"`
	SkipMigrate bool   `env:"WHITECARD_SKIP_MIGRATE" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
