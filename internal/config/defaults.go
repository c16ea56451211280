package config

import "time"

// Default returns a Config populated with production defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    150 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		Collector: CollectorConfig{
			Namespace: "default",
			Timeout:   15 * time.Second,
			// Full log by default, matching kubectl logs without --tail.
			LogTailLines: 0,
		},

		Provider: ProviderConfig{
			Backend:     "openai",
			Model:       "gpt-4o",
			MaxTokens:   1024,
			Temperature: 0,
			APIKeyEnv:   "OPENAI_API_KEY",
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenDuration:        60 * time.Second,
			},
			RateLimit: RateLimitConfig{
				DailyTokenBudget:  0,
				HourlyTokenBudget: 0,
			},
		},

		Router: RouterConfig{},

		Redaction: RedactionConfig{},

		Sinks: SinksConfig{},

		Metrics: MetricsConfig{
			Enabled: true,
			Port:    8080,
		},

		Health: HealthConfig{
			Port: 8081,
		},
	}
}

// ApplyDefaults fills zero values in c with the corresponding defaults.
// Booleans and pointer-typed sections are left as loaded: an explicitly
// disabled flag or an omitted sink stays that way.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}

	if c.Collector.Namespace == "" {
		c.Collector.Namespace = d.Collector.Namespace
	}
	if c.Collector.Timeout == 0 {
		c.Collector.Timeout = d.Collector.Timeout
	}

	if c.Provider.Backend == "" {
		c.Provider.Backend = d.Provider.Backend
	}
	if c.Provider.Model == "" {
		c.Provider.Model = d.Provider.Model
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = d.Provider.MaxTokens
	}
	if c.Provider.APIKeyEnv == "" {
		switch c.Provider.Backend {
		case "claude":
			c.Provider.APIKeyEnv = "ANTHROPIC_API_KEY"
		default:
			c.Provider.APIKeyEnv = d.Provider.APIKeyEnv
		}
	}
	if c.Provider.CircuitBreaker.ConsecutiveFailures == 0 {
		c.Provider.CircuitBreaker.ConsecutiveFailures = d.Provider.CircuitBreaker.ConsecutiveFailures
	}
	if c.Provider.CircuitBreaker.OpenDuration == 0 {
		c.Provider.CircuitBreaker.OpenDuration = d.Provider.CircuitBreaker.OpenDuration
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = d.Metrics.Port
	}
	if c.Health.Port == 0 {
		c.Health.Port = d.Health.Port
	}
}
