package config

import (
	"fmt"
	"regexp"
	"strings"
)

// validProviderBackends is the set of recognized completion backend names.
var validProviderBackends = map[string]bool{
	"openai":         true,
	"claude":         true,
	"claude-bedrock": true,
}

// validRoutes is the set of routes a routing rule may force.
var validRoutes = map[string]bool{
	"log":     true,
	"general": true,
}

// Validate checks the config for invalid or contradictory settings.
// It should be called after ApplyDefaults. On the first error encountered,
// it returns a descriptive error; the process should crash with it at startup.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCollector(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateRouter(); err != nil {
		return err
	}
	if err := c.validateRedaction(); err != nil {
		return err
	}
	if err := c.validateSinks(); err != nil {
		return err
	}
	if err := c.validatePorts(); err != nil {
		return err
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: port %d out of valid range [1, 65535]", name, port)
	}
	return nil
}

func (c *Config) validateServer() error {
	if err := validatePort("server", c.Server.Port); err != nil {
		return err
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.readTimeout must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.writeTimeout must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdownTimeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid log format %q: must be json or text", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateCollector() error {
	if c.Collector.Namespace == "" {
		return fmt.Errorf("collector.namespace must not be empty")
	}
	if c.Collector.Timeout <= 0 {
		return fmt.Errorf("collector.timeout must be positive, got %s", c.Collector.Timeout)
	}
	if c.Collector.LogTailLines < 0 {
		return fmt.Errorf("collector.logTailLines must not be negative, got %d", c.Collector.LogTailLines)
	}
	return nil
}

func (c *Config) validateProvider() error {
	p := &c.Provider
	if !validProviderBackends[p.Backend] {
		return fmt.Errorf("invalid provider backend %q: must be one of openai, claude, claude-bedrock", p.Backend)
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("provider.maxTokens must be positive, got %d", p.MaxTokens)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("provider.temperature must be in [0, 2], got %g", p.Temperature)
	}
	if p.Backend == "claude-bedrock" {
		if p.Bedrock.Region == "" {
			return fmt.Errorf("provider.bedrock.region must not be empty for the claude-bedrock backend")
		}
		if p.Bedrock.ModelID == "" {
			return fmt.Errorf("provider.bedrock.modelID must not be empty for the claude-bedrock backend")
		}
	} else if p.APIKeyEnv == "" {
		return fmt.Errorf("provider.apiKeyEnv must not be empty for the %s backend", p.Backend)
	}
	if p.CircuitBreaker.Enabled {
		if p.CircuitBreaker.ConsecutiveFailures < 1 {
			return fmt.Errorf("provider.circuitBreaker.consecutiveFailures must be >= 1, got %d",
				p.CircuitBreaker.ConsecutiveFailures)
		}
		if p.CircuitBreaker.OpenDuration <= 0 {
			return fmt.Errorf("provider.circuitBreaker.openDuration must be positive, got %s",
				p.CircuitBreaker.OpenDuration)
		}
	}
	if p.RateLimit.DailyTokenBudget < 0 {
		return fmt.Errorf("provider.rateLimit.dailyTokenBudget must not be negative, got %d", p.RateLimit.DailyTokenBudget)
	}
	if p.RateLimit.HourlyTokenBudget < 0 {
		return fmt.Errorf("provider.rateLimit.hourlyTokenBudget must not be negative, got %d", p.RateLimit.HourlyTokenBudget)
	}
	return nil
}

func (c *Config) validateRouter() error {
	seen := make(map[string]bool, len(c.Router.Rules))
	for i, rule := range c.Router.Rules {
		if rule.Name == "" {
			return fmt.Errorf("router.rules[%d]: name must not be empty", i)
		}
		if seen[rule.Name] {
			return fmt.Errorf("router.rules[%d]: duplicate rule name %q", i, rule.Name)
		}
		seen[rule.Name] = true
		if rule.Expression == "" {
			return fmt.Errorf("router.rules[%d] (%s): expression must not be empty", i, rule.Name)
		}
		if !validRoutes[rule.Route] {
			return fmt.Errorf("router.rules[%d] (%s): invalid route %q: must be log or general", i, rule.Name, rule.Route)
		}
	}
	return nil
}

func (c *Config) validateRedaction() error {
	for i, pattern := range c.Redaction.ExtraPatterns {
		if pattern == "" {
			return fmt.Errorf("redaction.extraPatterns[%d]: pattern must not be empty", i)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("redaction.extraPatterns[%d]: invalid regex %q: %w", i, pattern, err)
		}
	}
	return nil
}

func (c *Config) validateSinks() error {
	if c.Sinks.Webhook != nil && c.Sinks.Webhook.URL == "" {
		return fmt.Errorf("sinks.webhook.url must not be empty when the webhook sink is configured")
	}
	if c.Sinks.S3 != nil {
		if c.Sinks.S3.Bucket == "" {
			return fmt.Errorf("sinks.s3.bucket must not be empty when the s3 sink is configured")
		}
		if c.Sinks.S3.Region == "" {
			return fmt.Errorf("sinks.s3.region must not be empty when the s3 sink is configured")
		}
	}
	return nil
}

func (c *Config) validatePorts() error {
	if c.Metrics.Enabled {
		if err := validatePort("metrics", c.Metrics.Port); err != nil {
			return err
		}
	}
	if err := validatePort("health", c.Health.Port); err != nil {
		return err
	}

	ports := map[int]string{c.Server.Port: "server"}
	check := func(name string, port int) error {
		if other, taken := ports[port]; taken {
			return fmt.Errorf("%s: port %d already used by %s", name, port, other)
		}
		ports[port] = name
		return nil
	}
	if c.Metrics.Enabled {
		if err := check("metrics", c.Metrics.Port); err != nil {
			return err
		}
	}
	return check("health", c.Health.Port)
}
