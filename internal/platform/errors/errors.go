// Package errors maps application failures onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrorType is the category of an error. It is also the "type" field of the
// JSON body the client receives.
type ErrorType string

const (
	TypeValidation ErrorType = "validation"
	TypeForbidden  ErrorType = "forbidden"
	TypeNotFound   ErrorType = "not_found"
	TypeInternal   ErrorType = "internal"
)

type category struct {
	status  int
	level   slog.Level
	summary string
}

// Client mistakes log at Info, refused admin calls at Warn, our own faults at Error.
var categories = map[ErrorType]category{
	TypeValidation: {http.StatusBadRequest, slog.LevelInfo, "Rejected request"},
	TypeForbidden:  {http.StatusForbidden, slog.LevelWarn, "Forbidden"},
	TypeNotFound:   {http.StatusNotFound, slog.LevelInfo, "Not found"},
	TypeInternal:   {http.StatusInternalServerError, slog.LevelError, "Internal error"},
}

func (t ErrorType) category() category {
	if c, ok := categories[t]; ok {
		return c
	}
	return categories[TypeInternal]
}

// Error carries a client-facing message, an optional cause that is logged
// but never serialized, and fields that are both logged and returned.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus is the response status for the error's type. Unknown types map to 500.
func (e *Error) HTTPStatus() int { return e.Type.category().status }

// LogLevel is the slog level the error is reported at.
func (e *Error) LogLevel() slog.Level { return e.Type.category().level }

// Summary is the log message for the error's type.
func (e *Error) Summary() string { return e.Type.category().summary }

// WithField attaches a key/value pair that is logged and returned to the client.
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, 1)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body written for an Error.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) Response() ErrorResponse {
	return ErrorResponse{Error: e.Message, Type: e.Type, Context: e.Context}
}

func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

func ForbiddenError(message string) *Error {
	return &Error{Type: TypeForbidden, Message: message}
}

func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

// From finds the *Error in err's chain. Anything else becomes an internal
// error whose message is err's text, so a 500 body still names what failed.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err.Error(), err)
}
