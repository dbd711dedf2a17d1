package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeUnknownSource represents a request for an unregistered source
	ErrorTypeUnknownSource ErrorType = "unknown_source"
	// ErrorTypeDelegate represents a failed remote scraping run
	ErrorTypeDelegate ErrorType = "delegate"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents rate limiting or quota errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNormalization represents a raw item that could not become a product
	ErrorTypeNormalization ErrorType = "normalization"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// SearchError represents an error raised while searching a source
type SearchError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *SearchError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the same search may succeed later.
// Configuration and input problems never do.
func (e *SearchError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeDelegate, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new SearchError
func New(errType ErrorType, source, message string, err error) *SearchError {
	return &SearchError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewUnknownSource creates an error for an unregistered source identifier
func NewUnknownSource(source string) *SearchError {
	return New(ErrorTypeUnknownSource, source, "unknown marketplace", nil)
}

// NewDelegate creates a new delegate failure
func NewDelegate(source, message string, err error) *SearchError {
	return New(ErrorTypeDelegate, source, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *SearchError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *SearchError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewNormalization creates an error for a dropped raw item
func NewNormalization(source, message string) *SearchError {
	return New(ErrorTypeNormalization, source, message, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *SearchError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *SearchError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *SearchError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *SearchError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first SearchError in err's chain,
// or an empty type if there is none.
func TypeOf(err error) ErrorType {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

// Is reports whether err carries a SearchError of the given type
func Is(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsUnknownSource reports whether err is an unknown source error
func IsUnknownSource(err error) bool { return Is(err, ErrorTypeUnknownSource) }

// IsRateLimit reports whether err is a rate limit error
func IsRateLimit(err error) bool { return Is(err, ErrorTypeRateLimit) }

// IsNormalization reports whether err is a dropped item
func IsNormalization(err error) bool { return Is(err, ErrorTypeNormalization) }

// IsRetryable reports whether err may go away on a later attempt. Errors
// that are not SearchErrors, such as deadlines, count as retryable.
func IsRetryable(err error) bool {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.IsRetryable()
	}
	return err != nil
}
