package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		Primary struct {
			DSN string
		}
	}

	Generation struct {
		Provider              string `mapstructure:"provider"` // "openrouter" or "gemini"
		Model                 string `mapstructure:"model"`
		BaseURL               string `mapstructure:"base_url"`
		OpenRouterApiKey      string `mapstructure:"openrouter_api_key"`
		GeminiApiKey          string `mapstructure:"gemini_api_key"`
		MaxConcurrent         int    `mapstructure:"max_concurrent"`
		RateLimitDelaySeconds int    `mapstructure:"rate_limit_delay_seconds"` // 0 disables pacing entirely
		MaxSourceChars        int    `mapstructure:"max_source_chars"`
		MinOutputChars        int    `mapstructure:"min_output_chars"`
		RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
		Prompt                string `mapstructure:"prompt"` // Path to master prompt template, empty for built-in
	} `mapstructure:"generation"`

	Redis struct {
		Address  string
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/cornell")

	viper.AutomaticEnv()
	// API keys come from the environment in most deployments.
	viper.BindEnv("generation.openrouter_api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("generation.gemini_api_key", "GEMINI_API_KEY")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.primary.dsn", "cornell.db")
	viper.SetDefault("generation.provider", "openrouter")
	viper.SetDefault("generation.max_concurrent", 2)
	viper.SetDefault("generation.rate_limit_delay_seconds", 3)
	viper.SetDefault("generation.max_source_chars", 30000)
	viper.SetDefault("generation.min_output_chars", 100)
	viper.SetDefault("generation.request_timeout_seconds", 180)
	viper.SetDefault("worker.concurrency", 1)
	viper.SetDefault("worker.queues", map[string]int{"default": 1})
}
