// Package config defines the configuration struct for the query agent.
// Configuration is loaded from a YAML file; every field has a default so the
// agent starts with an empty or missing file. The completion provider API key
// is deliberately NOT part of this file: it is resolved from an environment
// variable at startup and its absence is fatal.
package config

import "time"

// DefaultConfigPath is the default filesystem path for the agent config file,
// typically mounted via ConfigMap when running in-cluster.
const DefaultConfigPath = "/etc/kube-query-agent/config.yaml"

// Config is the top-level configuration for the query agent.
type Config struct {
	// Server configures the public HTTP endpoint.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Collector configures cluster snapshot collection.
	Collector CollectorConfig `yaml:"collector"`

	// Provider configures the chat completion backend.
	Provider ProviderConfig `yaml:"provider"`

	// Router configures query classification.
	Router RouterConfig `yaml:"router"`

	// Redaction configures secret redaction of returned pod logs.
	Redaction RedactionConfig `yaml:"redaction"`

	// Sinks configures where answered-query transcripts are delivered.
	Sinks SinksConfig `yaml:"sinks"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health configures the health probe port.
	Health HealthConfig `yaml:"health"`
}

// ServerConfig holds the query endpoint's HTTP server settings.
type ServerConfig struct {
	// Port is the listen port for POST /query.
	Port int `yaml:"port"`

	// ReadTimeout bounds reading the full request, including the body.
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// WriteTimeout bounds writing the response. It must accommodate the
	// completion provider's latency, which dominates request wall-clock time.
	WriteTimeout time.Duration `yaml:"writeTimeout"`

	// ShutdownTimeout bounds graceful drain on SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig controls the logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// File, when set, tees log output to this append-only file in addition
	// to stdout.
	File string `yaml:"file"`
}

// CollectorConfig holds cluster snapshot collection settings.
type CollectorConfig struct {
	// Namespace is the namespace pods and deployments are listed in.
	// Nodes are cluster-scoped and unaffected.
	Namespace string `yaml:"namespace"`

	// Timeout bounds each individual list/log API call.
	Timeout time.Duration `yaml:"timeout"`

	// LogTailLines limits a pod log fetch to the last N lines.
	// Zero fetches the full log.
	LogTailLines int64 `yaml:"logTailLines"`
}

// ProviderConfig holds the completion provider settings.
type ProviderConfig struct {
	// Backend selects the provider implementation: "openai", "claude",
	// or "claude-bedrock".
	Backend string `yaml:"backend"`

	// Model is the model identifier sent to the backend.
	Model string `yaml:"model"`

	// MaxTokens caps the completion length.
	MaxTokens int `yaml:"maxTokens"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// APIKeyEnv names the environment variable holding the API key.
	// Ignored by the claude-bedrock backend, which uses the AWS credential
	// chain instead.
	APIKeyEnv string `yaml:"apiKeyEnv"`

	// APIURL overrides the backend's default API endpoint (for testing or
	// proxies).
	APIURL string `yaml:"apiURL"`

	// SystemPromptOverride replaces the default system instruction entirely.
	SystemPromptOverride string `yaml:"systemPromptOverride"`

	// SystemPromptAppend is appended after the system instruction
	// (default or override).
	SystemPromptAppend string `yaml:"systemPromptAppend"`

	// Bedrock holds settings specific to the claude-bedrock backend.
	Bedrock BedrockConfig `yaml:"bedrock"`

	// CircuitBreaker configures failure-driven fallback.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`

	// RateLimit configures token budget enforcement.
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// BedrockConfig holds settings for the AWS Bedrock backend.
type BedrockConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"modelID"`
}

// CircuitBreakerConfig configures the provider circuit breaker.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled"`

	// ConsecutiveFailures is the number of consecutive provider failures
	// before the circuit opens.
	ConsecutiveFailures int `yaml:"consecutiveFailures"`

	// OpenDuration is how long the circuit stays open before a probe.
	OpenDuration time.Duration `yaml:"openDuration"`
}

// RateLimitConfig configures provider token budgets. Zero means unlimited.
type RateLimitConfig struct {
	DailyTokenBudget  int `yaml:"dailyTokenBudget"`
	HourlyTokenBudget int `yaml:"hourlyTokenBudget"`
}

// RouterConfig holds query classification settings.
type RouterConfig struct {
	// Rules are optional CEL expressions evaluated against the query text
	// before the built-in substring heuristic. The first rule that evaluates
	// to true forces its route.
	Rules []RoutingRule `yaml:"rules"`
}

// RoutingRule is one CEL classification override.
type RoutingRule struct {
	// Name identifies the rule in logs and metrics.
	Name string `yaml:"name"`

	// Expression is a CEL expression over the variable `query` (string)
	// returning bool, e.g. `query.contains("crash")`.
	Expression string `yaml:"expression"`

	// Route is the forced route when the expression is true:
	// "log" or "general".
	Route string `yaml:"route"`
}

// RedactionConfig controls pod log redaction.
type RedactionConfig struct {
	// Disabled turns redaction off entirely.
	Disabled bool `yaml:"disabled"`

	// ExtraPatterns are additional regex patterns redacted from log output,
	// on top of the built-in secret patterns.
	ExtraPatterns []string `yaml:"extraPatterns"`
}

// SinksConfig holds transcript delivery settings. The log sink is always on
// and has no configuration.
type SinksConfig struct {
	Webhook *WebhookSinkConfig `yaml:"webhook,omitempty"`
	S3      *S3SinkConfig      `yaml:"s3,omitempty"`
}

// WebhookSinkConfig configures the webhook transcript sink.
type WebhookSinkConfig struct {
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	AllowedDomains []string          `yaml:"allowedDomains,omitempty"`
}

// S3SinkConfig configures the S3 transcript sink.
type S3SinkConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// HealthConfig configures the health probe server.
type HealthConfig struct {
	Port int `yaml:"port"`
}
