package sandbox

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Error types reported in error bodies
const (
	ErrTypeAuthentication = "authentication_error"
	ErrTypeNotFound       = "not_found"
	ErrTypeValidation     = "validation"
	ErrTypeInvalidRequest = "invalid_request"
	ErrTypeInternal       = "internal_error"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	StatusCode int         `json:"status_code"`
	Error      ErrorDetail `json:"error"`
}

// ErrorDetail describes what went wrong
type ErrorDetail struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewErrorResponse creates an error body
func NewErrorResponse(status int, errType, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: status,
		Error:      ErrorDetail{Type: errType, Message: message},
	}
}

// AddItemRequest is the form posted to add a product to a cart
type AddItemRequest struct {
	ID       string            `json:"id"`
	Quantity int               `json:"quantity"`
	Options  map[string]string `json:"options"`
}

// Validate checks the request fields
func (r AddItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Quantity, validation.Min(1), validation.Max(100)),
	)
}

// UpdateItemRequest is the form sent to change a line's quantity
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// Validate checks the request fields
func (r UpdateItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Quantity, validation.NotNil, validation.Min(0), validation.Max(100)),
	)
}

// ListRequest carries the paging options of list endpoints
type ListRequest struct {
	Limit int `json:"limit"`
	Page  int `json:"page"`
}

// Validate checks the paging options
func (r ListRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(200)),
		validation.Field(&r.Page, validation.Min(0)),
	)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Carts   int               `json:"carts"`
	Checks  map[string]string `json:"checks"`
}
