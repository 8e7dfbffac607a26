package domain

import (
	"fmt"
	"strings"
)

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
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeInvalidFileType    = "INVALID_FILE_TYPE"
	ErrCodeEmptyDocument      = "EMPTY_DOCUMENT"
	ErrCodeParseFailure       = "PARSE_FAILURE"
	ErrCodeEmbeddingProvider  = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeNamespaceProvision = "NAMESPACE_PROVISION_ERROR"
	ErrCodeVectorStore        = "VECTOR_STORE_ERROR"
	ErrCodeLLM                = "LLM_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query must not be empty")
	ErrQueryTooLong         = NewDomainError(ErrCodeValidation, "query exceeds the maximum length of 1000 characters")
)

// Not found errors
var (
	ErrUserNotFound     = NewDomainError(ErrCodeNotFound, "user not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrTokenNotFound    = NewDomainError(ErrCodeNotFound, "access token not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "user already exists")
)

// Authorization errors
var (
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid access token")
	ErrTokenRevoked = NewDomainError(ErrCodeUnauthorized, "access token has been revoked")
	ErrInactiveUser = NewDomainError(ErrCodeForbidden, "user account is inactive")
)

// NewInvalidFileTypeError reports a rejected file extension together with the
// supported set, so the caller can tell the user what is accepted.
func NewInvalidFileTypeError(fileType string, supported []string) *DomainError {
	return NewDomainError(ErrCodeInvalidFileType,
		fmt.Sprintf("invalid file type %q, supported types: %s", fileType, strings.Join(supported, ", ")))
}

// NewEmptyDocumentError reports a document that produced no extractable text.
func NewEmptyDocumentError(filename string) *DomainError {
	return NewDomainError(ErrCodeEmptyDocument,
		fmt.Sprintf("document %q is empty or contains no extractable text", filename))
}

// NewParseFailureError reports a file that could not be parsed.
func NewParseFailureError(filename string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeParseFailure,
		fmt.Sprintf("failed to parse document %q", filename), err)
}

// NewEmbeddingProviderError reports an embedding backend failure.
func NewEmbeddingProviderError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingProvider, "embedding provider request failed", err)
}

// NewNamespaceProvisionError reports a failure to provision a tenant namespace.
func NewNamespaceProvisionError(namespace string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeNamespaceProvision,
		fmt.Sprintf("failed to provision vector namespace %q", namespace), err)
}

// NewVectorStoreError reports a vector store operation failure.
func NewVectorStoreError(operation string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeVectorStore,
		fmt.Sprintf("vector store operation %q failed", operation), err)
}

// NewLLMError reports a language model failure.
func NewLLMError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeLLM, "language model request failed", err)
}

// NewServiceUnavailableError reports a timed-out or unreachable external service.
func NewServiceUnavailableError(service string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeServiceUnavailable,
		fmt.Sprintf("service %q is unavailable", service), err)
}
