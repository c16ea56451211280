// Package provider — apikey.go provides API key resolution for backends that
// authenticate with a bearer key. Decoupling key retrieval from the backend
// implementation lets tests inject a static key and lets the process pick up
// rotated keys without a restart.
package provider

import (
	"context"
	"fmt"
	"os"
)

// KeySource supplies the provider API key. It is consulted on every call.
type KeySource interface {
	ReadKey(ctx context.Context) (string, error)
}

// EnvKeySource reads the API key from a named environment variable.
type EnvKeySource struct {
	// Var is the environment variable name, e.g. "OPENAI_API_KEY".
	Var string
}

// ReadKey returns the variable's value, or an error when unset or empty.
func (e EnvKeySource) ReadKey(ctx context.Context) (string, error) {
	key := os.Getenv(e.Var)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", e.Var)
	}
	return key, nil
}

// StaticKeySource returns a fixed key. Intended for tests.
type StaticKeySource string

// ReadKey returns the static key, or an error when it is empty.
func (s StaticKeySource) ReadKey(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("static key is empty")
	}
	return string(s), nil
}
