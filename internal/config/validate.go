package config

import "errors"

func (c *Config) Validate() error {
	if c.Database.Primary.DSN == "" {
		return errors.New("database.primary.DSN is required")
	}

	switch c.Generation.Provider {
	case "openrouter", "gemini":
	default:
		return errors.New("generation.provider must be \"openrouter\" or \"gemini\"")
	}

	if c.Generation.MaxConcurrent <= 0 {
		return errors.New("generation.max_concurrent must be a positive integer")
	}
	if c.Generation.RateLimitDelaySeconds < 0 {
		return errors.New("generation.rate_limit_delay_seconds must not be negative")
	}
	if c.Generation.RequestTimeoutSeconds <= 0 {
		return errors.New("generation.request_timeout_seconds must be a positive integer")
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}

	return nil
}
