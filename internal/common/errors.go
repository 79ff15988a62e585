package common

import (
	"errors"
	"fmt"
)

// Error codes for the application taxonomy.
const (
	CodeExtractionFailed = "EXTRACTION_FAILED" // unparseable PDF structure
	CodeParseFailed      = "PARSE_FAILED"      // mandatory field absent
	CodeAnnexFormat      = "ANNEX_FORMAT"      // malformed annex payload
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeInternal         = "INTERNAL"
	CodeTimeout          = "TIMEOUT"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtractionFailed, message, cause)
}

func ParseError(message string, cause error) *AppError {
	return NewAppError(CodeParseFailed, message, cause)
}

func AnnexFormatError(message string, cause error) *AppError {
	return NewAppError(CodeAnnexFormat, message, cause)
}

func InvalidArgumentErrorf(format string, args ...interface{}) *AppError {
	return NewAppError(CodeInvalidArgument, fmt.Sprintf(format, args...), nil)
}

func InternalError(message string, cause error) *AppError {
	return NewAppError(CodeInternal, message, cause)
}

// IsCode reports whether any error in err's chain is an *AppError with the given code.
func IsCode(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
