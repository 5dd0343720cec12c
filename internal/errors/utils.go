package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a BundlerError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *BundlerError {
	if err == nil {
		return nil
	}

	// Preserve path and context of an existing BundlerError
	var be *BundlerError
	if errors.As(err, &be) {
		return &BundlerError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       be,
			Context:     be.Context,
			Path:        be.Path,
			Recoverable: be.Recoverable,
		}
	}

	return &BundlerError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeMinify || errType == ErrorTypeLoad,
	}
}

// WrapIO wraps an error as an I/O error for the given path
func WrapIO(err error, code, message, path string) *BundlerError {
	be := Wrap(err, ErrorTypeIO, code, message)
	if be != nil {
		be.Path = path
		be.Recoverable = false
	}
	return be
}

// WrapBuild wraps an error as a fatal build error
func WrapBuild(err error, code, message string) *BundlerError {
	be := Wrap(err, ErrorTypeBuild, code, message)
	if be != nil {
		be.Recoverable = false
	}
	return be
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var be *BundlerError
	if errors.As(err, &be) {
		return be.Error()
	}

	return err.Error()
}

// GetErrorContext extracts context information from a BundlerError
func GetErrorContext(err error) map[string]interface{} {
	var be *BundlerError
	if errors.As(err, &be) {
		context := make(map[string]interface{})
		for k, v := range be.Context {
			context[k] = v
		}
		if be.Path != "" {
			context["path"] = be.Path
		}
		context["type"] = string(be.Type)
		context["code"] = be.Code
		context["recoverable"] = be.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}
