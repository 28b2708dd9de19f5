package errors

import (
	"errors"
	"net/http"
	"strings"
)

// Kind is the stable machine-readable classification of a failure.
type Kind string

const (
	KindValidation                       Kind = "VALIDATION_ERROR"
	KindDuplicateAccount                 Kind = "DUPLICATE_ACCOUNT"
	KindInvalidOrExpiredCode             Kind = "INVALID_OR_EXPIRED_CODE"
	KindAccountNotFoundOrAlreadyVerified Kind = "ACCOUNT_NOT_FOUND_OR_ALREADY_VERIFIED"
	KindInvalidCredentials               Kind = "INVALID_CREDENTIALS"
	KindAccountLocked                    Kind = "ACCOUNT_LOCKED"
	KindAccountSuspended                 Kind = "ACCOUNT_SUSPENDED"
	KindAccountNotVerified               Kind = "ACCOUNT_NOT_VERIFIED"
	KindInvalidToken                     Kind = "INVALID_TOKEN"
	KindInternal                         Kind = "INTERNAL_ERROR"
)

// Error is a classified domain error. Two errors match under errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return e.Message + ": " + strings.Join(e.Fields, ", ")
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrDuplicateAccount is returned when the normalized email is already registered.
	ErrDuplicateAccount = &Error{Kind: KindDuplicateAccount, Message: "an account with this email already exists"}
	// ErrInvalidOrExpiredCode is returned for any failed verification attempt.
	ErrInvalidOrExpiredCode = &Error{Kind: KindInvalidOrExpiredCode, Message: "invalid or expired verification code"}
	// ErrAccountNotFoundOrAlreadyVerified is returned when a code cannot be resent.
	ErrAccountNotFoundOrAlreadyVerified = &Error{Kind: KindAccountNotFoundOrAlreadyVerified, Message: "account not found or already verified"}
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	// ErrAccountLocked is returned while the lockout window is open.
	ErrAccountLocked = &Error{Kind: KindAccountLocked, Message: "account is temporarily locked after too many failed attempts"}
	// ErrAccountSuspended is returned when the account status is not active.
	ErrAccountSuspended = &Error{Kind: KindAccountSuspended, Message: "account is suspended"}
	// ErrAccountNotVerified is returned when login is attempted before email verification.
	ErrAccountNotVerified = &Error{Kind: KindAccountNotVerified, Message: "account is not verified, check your email for the verification code"}
	// ErrInvalidToken is returned for any bearer token that is malformed, expired, revoked or badly signed.
	ErrInvalidToken = &Error{Kind: KindInvalidToken, Message: "invalid or expired token"}
)

// Validation builds a validation error listing every offending field.
func Validation(message string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Internal wraps an infrastructure failure. The cause is kept for logs and never rendered.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf classifies err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     []string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", string(KindInternal))
	}

	status := http.StatusBadRequest
	if e.Kind == KindInvalidToken {
		status = http.StatusUnauthorized
	}
	httpErr := NewHTTPError(status, e.Message, string(e.Kind))
	httpErr.Fields = e.Fields
	return httpErr
}
