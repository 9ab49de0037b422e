package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError is the error shape every handler reports through c.Error.
type APIError struct {
	Status   int    `json:"-"`
	Message  string `json:"error"`
	Detail   string `json:"detail,omitempty"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

// WithDetail returns a copy that also exposes detail to the caller.
func (e *APIError) WithDetail(detail string) *APIError {
	return &APIError{
		Status:   e.Status,
		Message:  e.Message,
		Detail:   detail,
		Internal: e.Internal,
	}
}

func New(status int, message string, err error) *APIError {
	return &APIError{
		Status:   status,
		Message:  message,
		Internal: err,
	}
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, message, err)
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, message, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

func InternalWithMessage(message string, err error) *APIError {
	return New(http.StatusInternalServerError, message, err)
}

// NewValidationError turns binding errors into a 400. Field errors from the
// validator become "<jsonField> is <tag>" messages.
func NewValidationError(err error) *APIError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return BadRequest("Invalid input", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", lowerFirst(fe.Field()), fe.Tag()))
	}
	return BadRequest(strings.Join(msgs, ", "), err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
