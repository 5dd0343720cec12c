// Package errors provides the structured error taxonomy used across jsplus.
//
// Build-time failures (missing entry, unreadable source, unwritable output)
// are fatal and abort the whole invocation. Asset copy failures and minifier
// degradation are recoverable: they are reported and the build continues.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeResolution ErrorType = "resolution"
	ErrorTypeLoad       ErrorType = "load"
	ErrorTypeMinify     ErrorType = "minify"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// BundlerError is a structured error type with context.
type BundlerError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *BundlerError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BundlerError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BundlerError) Is(target error) bool {
	var t *BundlerError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BundlerError) WithContext(key string, value interface{}) *BundlerError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches the file or module id the error concerns.
func (e *BundlerError) WithPath(path string) *BundlerError {
	e.Path = path

	return e
}

// Common error codes.
const (
	ErrCodeEntryNotFound    = "ERR_ENTRY_NOT_FOUND"
	ErrCodeSourceUnreadable = "ERR_SOURCE_UNREADABLE"
	ErrCodeModuleNotFound   = "ERR_MODULE_NOT_FOUND"
	ErrCodeScriptLoad       = "ERR_SCRIPT_LOAD"
	ErrCodeMinifyDegraded   = "ERR_MINIFY_DEGRADED"
	ErrCodeMinifyTierFailed = "ERR_MINIFY_TIER_FAILED"
	ErrCodeOutputWrite      = "ERR_OUTPUT_WRITE"
	ErrCodeAssetCopy        = "ERR_ASSET_COPY"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeAssembleFailed   = "ERR_ASSEMBLE_FAILED"
)

// Error creation functions

// NewResolutionError creates an error for a module id with no registered factory.
func NewResolutionError(id string) *BundlerError {
	return &BundlerError{
		Type:        ErrorTypeResolution,
		Code:        ErrCodeModuleNotFound,
		Message:     "module not found: " + id,
		Path:        id,
		Recoverable: false,
	}
}

// NewLoadError creates an error for a network-separated script that failed to load.
func NewLoadError(src string, cause error) *BundlerError {
	return &BundlerError{
		Type:        ErrorTypeLoad,
		Code:        ErrCodeScriptLoad,
		Message:     "failed to load script",
		Cause:       cause,
		Path:        src,
		Recoverable: true,
	}
}

// NewMinifyError creates a minification error. Minification failures never
// abort a build, so the error is always recoverable.
func NewMinifyError(code, message string, cause error) *BundlerError {
	return &BundlerError{
		Type:        ErrorTypeMinify,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *BundlerError {
	return &BundlerError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BundlerError {
	return &BundlerError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BundlerError {
	return &BundlerError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BundlerError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IsResolutionError checks if an error is a missing-module error.
func IsResolutionError(err error) bool {
	return hasType(err, ErrorTypeResolution)
}

// IsMinifyError checks if an error came from the minifier chain.
func IsMinifyError(err error) bool {
	return hasType(err, ErrorTypeMinify)
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	return hasType(err, ErrorTypeBuild)
}

func hasType(err error, t ErrorType) bool {
	var be *BundlerError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// ErrorHandler provides centralized error reporting.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its recoverability.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var be *BundlerError
	if !errors.As(err, &be) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	if be.Recoverable {
		h.logger.Warn(ctx, be, "Recoverable error occurred",
			"type", be.Type,
			"code", be.Code,
			"path", be.Path)
		return
	}

	h.logger.Error(ctx, be, "Error occurred",
		"type", be.Type,
		"code", be.Code,
		"path", be.Path)
}
