package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrEmptyResult indicates that an upstream call returned no candidates to choose from.
	ErrEmptyResult = errors.New("empty result")

	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamContract indicates that an upstream response violated its expected shape.
	ErrUpstreamContract = errors.New("upstream contract violation")

	// ErrUpstream indicates that an upstream API call failed at the HTTP or transport level.
	ErrUpstream = errors.New("upstream error")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// UpstreamContractError reports a response that decoded but is missing data
// the pipeline depends on, such as a chosen match without a paper ID.
type UpstreamContractError struct {
	Source  string
	Message string
}

// Error implements the error interface.
func (e *UpstreamContractError) Error() string {
	return fmt.Sprintf("%s contract violation: %s", e.Source, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *UpstreamContractError) Unwrap() error {
	return ErrUpstreamContract
}

// ExternalAPIError provides details about an external API error.
// StatusCode is zero when the request never produced a response.
type ExternalAPIError struct {
	Source     string
	Endpoint   string
	StatusCode int
	Message    string
	Body       string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error (%s): %s", e.Source, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s API error (%s, status %d): %s", e.Source, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap returns the cause and the ErrUpstream sentinel.
func (e *ExternalAPIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrUpstream, e.Cause}
	}
	return []error{ErrUpstream}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

// NewUpstreamContractError creates a new UpstreamContractError.
func NewUpstreamContractError(source, message string) *UpstreamContractError {
	return &UpstreamContractError{
		Source:  source,
		Message: message,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source, endpoint string, statusCode int, message, body string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
		Cause:      cause,
	}
}
