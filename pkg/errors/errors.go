package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can branch on category
// instead of string matching.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeConfigNotFound ErrorType = "config_not_found"
	ErrorTypeInvalidConfig  ErrorType = "invalid_config"
	ErrorTypeProcessStart   ErrorType = "process_start"
	ErrorTypeKillTimeout    ErrorType = "kill_timeout"
	ErrorTypeFileSystem     ErrorType = "filesystem"
	ErrorTypeModInstall     ErrorType = "mod_install"
	ErrorTypePlugin         ErrorType = "plugin"
	ErrorTypeIO             ErrorType = "io"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeCancelled      ErrorType = "cancelled"
)

// DomainError is a structured error with a type and free-form context.
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on error type, so errors.Is(err, &DomainError{Type: X})
// works across wrapping.
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext attaches context information to the error.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConflict, message, cause)
}

// Config store errors
func NewConfigNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConfigNotFound, message, cause)
}

func NewInvalidConfigError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInvalidConfig, message, cause)
}

// Lifecycle errors
func NewProcessStartError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcessStart, message, cause)
}

func NewKillTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeKillTimeout, message, cause)
}

func NewFileSystemError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeFileSystem, message, cause)
}

func NewModInstallError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeModInstall, message, cause)
}

func NewPluginError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePlugin, message, cause)
}

// System errors
func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

// AsDomainError reports whether err wraps a *DomainError, assigning it
// to target on success.
func AsDomainError(err error, target **DomainError) bool {
	return errors.As(err, target)
}

// IsErrorType checks whether err (or anything it wraps) is a DomainError
// of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errorType
	}
	return false
}

// GetErrorType extracts the error type, defaulting to internal for
// unclassified errors.
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}
