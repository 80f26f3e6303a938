package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code,omitempty"`    // Stable machine code
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// ValidateCommand validates a points command and classifies the failure:
// a bad amount is ErrInvalidAmount, a bad reference ErrInvalidReference,
// anything else ErrMissingField. The validator errors stay in the chain
// for field-level details.
func (vh *ValidationHelper) ValidateCommand(cmd any) error {
	err := vh.validator.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	kind := ErrMissingField
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "Amount":
			return fmt.Errorf("%w: %w", ErrInvalidAmount, fieldErrs)
		case "ReferenceType", "ReferenceID":
			kind = ErrInvalidReference
		}
	}
	return fmt.Errorf("%w: %w", kind, fieldErrs)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendDomainError writes err with the status and code of its error kind.
// Validation failures carry their field details.
func SendDomainError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := ErrorResponse{Error: message, Code: ErrorCode(err)}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		errorResp.Error = "Validation failed"
		errorResp.Details = make(map[string]string)
		for _, fe := range fieldErrs {
			errorResp.Details[fe.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", fe.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
