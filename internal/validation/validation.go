// Package validation guards values that reach the network or a subprocess:
// minifier commands and their arguments, remote endpoints, bundle hosts and
// websocket origins.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// shellMetachars are rejected in anything handed to exec or a browser.
var shellMetachars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}

func firstMetachar(s string, extra ...string) string {
	for _, char := range append(shellMetachars, extra...) {
		if strings.Contains(s, char) {
			return char
		}
	}
	return ""
}

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	if char := firstMetachar(arg); char != "" {
		return fmt.Errorf("contains dangerous character: %s", char)
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	if filepath.IsAbs(arg) && !strings.HasPrefix(arg, "/usr/bin/") && !strings.HasPrefix(arg, "/bin/") {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateCommand validates a command name against an allowlist
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[command] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateURL accepts absolute http and https URLs free of shell
// metacharacters and whitespace.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	if char := firstMetachar(rawURL, "\n", "\r"); char != "" {
		return fmt.Errorf("URL contains dangerous character: %q", char)
	}

	if strings.ContainsAny(rawURL, " \t") {
		return fmt.Errorf("URL contains whitespace")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}

// ValidateOrigin checks a websocket Origin header against allowedOrigins.
// Entries match either the full origin or its host:port.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
