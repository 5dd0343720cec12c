package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/minify"
	"github.com/conneroisu/jsplus/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateBundleConfigDetails(&config.Bundle, result)
	validateMinifyConfigDetails(&config.Minify, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateServeConfigDetails(&config.Serve, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()

	return result
}

// validateConfig returns the first validation error of config.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if result.HasErrors() {
		return &result.Errors[0]
	}
	return nil
}

func validateBundleConfigDetails(config *BundleConfig, result *ValidationResult) {
	if strings.TrimSpace(config.Entry) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "bundle.entry",
			Value:   config.Entry,
			Message: "entry file is required",
			Suggestions: []string{
				"Set bundle.entry in .jsplus.yml",
				"Pass --entry on the command line",
				"Export JSPLUS_BUNDLE_ENTRY",
			},
		})
	} else if _, err := os.Stat(config.Entry); err != nil {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "bundle.entry",
			Value:   config.Entry,
			Message: "entry file does not exist yet",
		})
	}

	if config.Namespace == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "bundle.namespace",
			Value:   config.Namespace,
			Message: "namespace must not be empty",
			Suggestions: []string{
				"Use the default namespace \"&/\"",
			},
		})
	}

	if config.Host != "" {
		if err := validation.ValidateURL(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "bundle.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use an origin such as https://cdn.example.com",
					"Leave empty to load separated bundles from the page origin",
				},
			})
		}
	}

	if config.CopyConcurrency < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "bundle.copy_concurrency",
			Value:   config.CopyConcurrency,
			Message: "copy concurrency cannot be negative",
		})
	}
}

func validateMinifyConfigDetails(config *MinifyConfig, result *ValidationResult) {
	for _, tier := range config.Tiers {
		if !minify.KnownTier(tier) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "minify.tiers",
				Value:   tier,
				Message: fmt.Sprintf("unknown minifier tier '%s'", tier),
				Suggestions: []string{
					"Available tiers: " + strings.Join(minify.DefaultTiers, ", "),
				},
			})
		}
	}

	if config.Enabled && contains(config.Tiers, minify.TierRemote) {
		if err := validation.ValidateURL(config.RemoteEndpoint); config.RemoteEndpoint != "" && err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "minify.remote_endpoint",
				Value:   config.RemoteEndpoint,
				Message: err.Error(),
			})
		}
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "minify.tiers",
			Value:   minify.TierRemote,
			Message: "the remote tier uploads bundle source to a third-party service",
			Suggestions: []string{
				"Remove 'remote' from minify.tiers for private code",
			},
		})
	}

	if config.RemoteTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "minify.remote_timeout",
			Value:   config.RemoteTimeout,
			Message: "timeout cannot be negative",
		})
	}

	if config.CacheSize < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "minify.cache_size",
			Value:   config.CacheSize,
			Message: "cache size cannot be negative",
		})
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	for _, path := range config.Paths {
		if err := validatePath(path); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch.paths",
				Value:   path,
				Message: err.Error(),
			})
		}
	}

	for _, pattern := range config.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch.ignore",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern '%s'", pattern),
				Suggestions: []string{
					"Use doublestar globs such as **/node_modules/**",
				},
			})
		}
	}

	if config.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Debounce,
			Message: "debounce cannot be negative",
		})
	}
}

func validateServeConfigDetails(config *ServeConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "serve.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Common development ports: 3000, 8080, 8000, 3001",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "serve.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "serve.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local development",
					"Use '0.0.0.0' to bind to all interfaces",
				},
			})
		}
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateURL(origin); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "serve.allowed_origins",
				Value:   origin,
				Message: err.Error(),
			})
		}
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.level",
			Value:   config.Level,
			Message: err.Error(),
			Suggestions: []string{
				"Use one of: debug, info, warn, error",
			},
		})
	}

	if config.Format != "" && config.Format != "text" && config.Format != "json" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   config.Format,
			Message: fmt.Sprintf("unknown log format '%s'", config.Format),
			Suggestions: []string{
				"Use 'text' or 'json'",
			},
		})
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := strings.TrimSpace(path)

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if host == "localhost" {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
