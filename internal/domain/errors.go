package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeUnsupportedFile = "UNSUPPORTED_FILE_TYPE"
	ErrCodeExtraction      = "EXTRACTION_ERROR"
	ErrCodeProvider        = "PROVIDER_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidVisibility    = NewDomainError(ErrCodeValidation, "invalid brain visibility")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrWrongDimensions      = NewDomainError(ErrCodeValidation, "embedding has wrong dimensions")
)

// Not found errors
var (
	ErrBrainNotFound    = NewDomainError(ErrCodeNotFound, "brain not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// Authorization errors
var (
	ErrAccessDenied     = NewDomainError(ErrCodeForbidden, "access to brain denied")
	ErrInvalidPrincipal = NewDomainError(ErrCodeUnauthorized, "invalid or unknown principal")
)

// Ingestion errors
var (
	ErrUnsupportedFileType = NewDomainError(ErrCodeUnsupportedFile, "unsupported file type")
)

// NewExtractionError wraps a file extraction failure. The message becomes the
// document's recorded processing error.
func NewExtractionError(fileType FileType, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, fmt.Sprintf("failed to extract text from %s", fileType), err)
}

// NewProviderError wraps an embedding or generation provider failure that
// survived the retry policy.
func NewProviderError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProvider, fmt.Sprintf("provider %s failed", op), err)
}
