package sink

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// SSRFValidator validates webhook URLs against an allowlist of domain
// patterns to prevent Server-Side Request Forgery attacks.
type SSRFValidator struct {
	allowedDomains []string
}

// NewSSRFValidator creates a validator with the given allowed domain
// patterns. Patterns use filepath.Match-style glob syntax applied to
// hostnames (e.g., "*.mycompany.com", "hooks.slack.com"). Returns an error
// if any pattern is invalid or the list is empty.
func NewSSRFValidator(allowedDomains []string) (*SSRFValidator, error) {
	if len(allowedDomains) == 0 {
		return nil, fmt.Errorf("ssrf: allowedDomains must not be empty")
	}
	for _, pattern := range allowedDomains {
		if pattern == "" {
			return nil, fmt.Errorf("ssrf: empty domain pattern")
		}
		if _, err := filepath.Match(pattern, "test"); err != nil {
			return nil, fmt.Errorf("ssrf: invalid domain pattern %q: %w", pattern, err)
		}
	}
	return &SSRFValidator{allowedDomains: allowedDomains}, nil
}

// ValidateURL checks that the given URL's hostname matches at least one
// allowed domain pattern. It rejects URLs that:
// - are not valid URLs
// - use a scheme other than https
// - are IP address literals or loopback aliases
// - don't match any allowed domain pattern
func (v *SSRFValidator) ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("ssrf: invalid URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return fmt.Errorf("ssrf: scheme must be https, got %q", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("ssrf: URL has no hostname")
	}

	// Reject IP address literals to prevent bypassing domain checks.
	if ip := net.ParseIP(hostname); ip != nil {
		return fmt.Errorf("ssrf: IP address literals are not allowed, use a hostname")
	}

	if isBlockedHostname(hostname) {
		return fmt.Errorf("ssrf: blocked hostname %q", hostname)
	}

	for _, pattern := range v.allowedDomains {
		matched, err := filepath.Match(pattern, hostname)
		if err != nil {
			// Pattern was validated at construction time.
			continue
		}
		if matched {
			return nil
		}
	}

	return fmt.Errorf("ssrf: hostname %q does not match any allowed domain", hostname)
}

// isBlockedHostname returns true for hostnames that resolve to local or
// cloud-metadata addresses and should always be blocked.
func isBlockedHostname(hostname string) bool {
	lower := strings.ToLower(hostname)
	blockedNames := []string{
		"localhost",
		"localhost.localdomain",
		"ip6-localhost",
		"ip6-loopback",
	}
	for _, blocked := range blockedNames {
		if lower == blocked {
			return true
		}
	}

	metadataHosts := []string{
		"metadata.google.internal",
		"metadata.google",
		"metadata.azure.com",
	}
	for _, meta := range metadataHosts {
		if lower == meta {
			return true
		}
	}

	return false
}

// noRedirectHTTPClient returns an HTTP client that refuses redirects, so a
// validated URL cannot bounce to an internal address.
func noRedirectHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return fmt.Errorf("ssrf: redirects are not allowed for webhook sinks")
		},
	}
}
