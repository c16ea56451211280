// Package redact scrubs secret-looking substrings from pod log text before it
// is returned to API callers. Raw container logs regularly leak tokens,
// connection strings, and credentials; everything the agent hands back on the
// log path passes through a Redactor first. Patterns are compiled once at
// construction time.
package redact

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Placeholder is the string that replaces matched sensitive data.
const Placeholder = "[REDACTED]"

// builtinPatterns match common secret formats found in container logs.
// Order matters: the specific Bearer/Basic patterns run before the general
// Authorization header pattern.
var builtinPatterns = []patternDef{
	{name: "bearer_token", pattern: `(?i)Bearer\s+[A-Za-z0-9._\-]+`},
	{name: "basic_auth_header", pattern: `(?i)Basic\s+[A-Za-z0-9+/=]+`},
	{name: "aws_access_key", pattern: `AKIA[A-Za-z0-9]{16}`},
	{name: "password_assignment", pattern: `(?i)password\s*"?\s*[=:]\s*"?\s*\S+`},
	{name: "token_assignment", pattern: `(?i)token\s*[=:]\s*[A-Za-z0-9._\-/+=]+`},
	{name: "authorization_header", pattern: `(?i)Authorization\s*[:=]\s*\S+`},
	{name: "secret_key_assignment", pattern: `(?i)(?:secret[_-]?key|api[_-]?key|access[_-]?key)\s*[=:]\s*\S+`},
	{name: "connection_string", pattern: `(?i)[a-z][a-z0-9+]*://[^:\s/]+:[^@\s/]+@`},
}

// patternDef pairs a human-readable name with a regex pattern string.
type patternDef struct {
	name    string
	pattern string
}

// compiledPattern holds a pre-compiled regex and its source name.
type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// Redactor applies a fixed set of compiled regex patterns to log text.
// It is immutable after construction and safe for concurrent use. A nil
// *Redactor is a valid no-op value at call sites with redaction disabled.
type Redactor struct {
	patterns []compiledPattern
}

// New creates a Redactor with the built-in patterns plus any extra
// user-supplied patterns from configuration. Extra patterns are validated at
// construction: if any is invalid, New returns an error listing all invalid
// patterns so the process can fail closed at startup.
func New(extraPatterns []string, logger *slog.Logger) (*Redactor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	compiled := make([]compiledPattern, 0, len(builtinPatterns)+len(extraPatterns))
	for _, bp := range builtinPatterns {
		re, err := regexp.Compile(bp.pattern)
		if err != nil {
			return nil, fmt.Errorf("internal error: builtin pattern %q failed to compile: %w", bp.name, err)
		}
		compiled = append(compiled, compiledPattern{name: bp.name, re: re})
	}

	var errs []string
	for i, pat := range extraPatterns {
		if pat == "" {
			errs = append(errs, fmt.Sprintf("pattern at index %d: empty pattern", i))
			continue
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			errs = append(errs, fmt.Sprintf("pattern at index %d (%q): %v", i, pat, err))
			continue
		}
		compiled = append(compiled, compiledPattern{name: fmt.Sprintf("extra_%d", i), re: re})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid redaction patterns: %s", strings.Join(errs, "; "))
	}

	logger.Info("redactor initialized",
		"builtin_patterns", len(builtinPatterns),
		"extra_patterns", len(extraPatterns),
	)

	return &Redactor{patterns: compiled}, nil
}

// Redact replaces every match of any configured pattern in text with
// [REDACTED]. Patterns are applied sequentially, so overlapping matches are
// resolved in declaration order. Calling Redact on a nil Redactor returns the
// text unchanged.
func (r *Redactor) Redact(text string) string {
	if r == nil || text == "" {
		return text
	}
	result := text
	for _, cp := range r.patterns {
		result = cp.re.ReplaceAllString(result, Placeholder)
	}
	return result
}

// PatternCount returns the total number of compiled patterns.
func (r *Redactor) PatternCount() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}
