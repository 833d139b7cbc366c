package apperrors

import "errors"

// ErrorType classifies the failures the bridge knows how to degrade from.
type ErrorType string

const (
	// ErrorTypeAuth aborts a whole collection cycle.
	ErrorTypeAuth ErrorType = "AuthError"
	// ErrorTypeFetch degrades a single metric id to empty data.
	ErrorTypeFetch ErrorType = "FetchError"
	// ErrorTypeCacheIO degrades the counter cache to an empty mapping.
	ErrorTypeCacheIO ErrorType = "CacheIOError"
	// ErrorTypePublishStep aborts the remaining chat calls of one publish cycle.
	ErrorTypePublishStep ErrorType = "PublishStepError"
)

type BridgeError struct {
	errorType ErrorType
	message   string
	cause     error
}

func New(errorType ErrorType, message string, cause error) BridgeError {
	return BridgeError{errorType: errorType, message: message, cause: cause}
}

func (e BridgeError) ErrorType() ErrorType {
	return e.errorType
}

func (e BridgeError) Message() string {
	return e.message
}

func (e BridgeError) Error() string {
	if e.cause == nil {
		return string(e.errorType) + ": " + e.message
	}
	return string(e.errorType) + ": " + e.message + ": " + e.cause.Error()
}

func (e BridgeError) Unwrap() error {
	return e.cause
}

func (e BridgeError) IsErrorType(errorType ErrorType) bool {
	return e.errorType == errorType
}

// IsType reports whether any error in err's chain is a BridgeError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var be BridgeError
	if errors.As(err, &be) {
		return be.errorType == errorType
	}
	return false
}
