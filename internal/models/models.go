// Package models defines the core data structures for IntakeFlow.
//
// It includes types for intake steps, fields, validation rules, and session
// records, which are shared across modules.
package models

import "errors"

// FieldType defines the kind of input a field accepts.
type FieldType string

const (
	// FieldTypeText is a free-form text input.
	FieldTypeText FieldType = "text"
	// FieldTypeSelect is a single choice from a dropdown option list.
	FieldTypeSelect FieldType = "select"
	// FieldTypeRadio is a single choice from visible options.
	FieldTypeRadio FieldType = "radio"
	// FieldTypeCheckbox is a multiple choice; its value is an array.
	FieldTypeCheckbox FieldType = "checkbox"
	// FieldTypeNumber is a numeric input.
	FieldTypeNumber FieldType = "number"
)

// Language identifies a display language supported by the funnel.
type Language string

const (
	// LanguageEnglish is the canonical language for submissions.
	LanguageEnglish Language = "en"
	// LanguageSpanish is the alternate display language.
	LanguageSpanish Language = "es"
)

// Error variables for better error handling and testability
var (
	ErrUnknownStep         = errors.New("unknown step id")
	ErrDuplicateStep       = errors.New("duplicate step id")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionAlreadyEnded = errors.New("session already submitted")
	ErrEmptySessionID      = errors.New("session id cannot be empty")
	ErrEmptyStepID         = errors.New("step id cannot be empty")
)

// IsValidFieldType checks if the given field type is supported.
func IsValidFieldType(ft FieldType) bool {
	switch ft {
	case FieldTypeText, FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox, FieldTypeNumber:
		return true
	default:
		return false
	}
}

// IsValidLanguage checks if the given language is supported.
func IsValidLanguage(l Language) bool {
	return l == LanguageEnglish || l == LanguageSpanish
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusInvalid indicates a request was rejected by field validation.
	APIStatusInvalid APIStatus = "invalid"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Convenience functions for common response patterns

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Invalid creates an API response carrying field validation failures.
func Invalid(failures interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusInvalid).
		WithMessage("validation failed").
		WithResult(failures).
		Build()
}
