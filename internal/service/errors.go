package service

import (
	"errors"
	"fmt"

	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/store"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
)

// Machine-readable codes carried in error responses.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeDuplicateSubdomain = "DUPLICATE_SUBDOMAIN"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeLimitReached       = "LIMIT_REACHED"
	CodeTenantNotFound     = "TENANT_NOT_FOUND"
	CodeTenantInactive     = "TENANT_INACTIVE"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid or expired token"
	msgLimitReached       = "Subscription limit reached"
	msgNoFields           = "No valid fields to update"
)

// Error is a classified failure. Message is safe to show to the caller;
// Err, when set, is the underlying cause and is only logged.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validation(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func forbidden(reason string) *Error {
	return &Error{Kind: ErrForbidden, Code: CodeForbidden, Message: reason}
}

func denied(d access.Decision) *Error {
	return forbidden(d.Reason)
}

func notFound(what string) *Error {
	return &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func invalidCredentials() *Error {
	return &Error{Kind: ErrInvalidCredentials, Code: CodeInvalidCredentials, Message: msgInvalidCredentials}
}

func invalidToken(cause error) *Error {
	return &Error{Kind: ErrInvalidToken, Code: CodeInvalidToken, Message: msgInvalidToken, Err: cause}
}

// storeErr classifies a store failure. what names the entity for not-found
// messages. Anything unrecognised is returned wrapped with op and becomes a
// 500 at the handler.
func storeErr(op string, err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case errors.Is(err, store.ErrDuplicateSubdomain):
		return &Error{Kind: ErrConflict, Code: CodeDuplicateSubdomain, Message: "Subdomain already taken", Err: err}
	case errors.Is(err, store.ErrDuplicateEmail):
		return &Error{Kind: ErrConflict, Code: CodeDuplicateEmail, Message: "Email already registered", Err: err}
	case errors.Is(err, store.ErrDuplicateKey):
		return &Error{Kind: ErrConflict, Code: CodeConflict, Message: "Resource already exists", Err: err}
	case errors.Is(err, store.ErrLimitReached):
		return &Error{Kind: ErrForbidden, Code: CodeLimitReached, Message: msgLimitReached, Err: err}
	case errors.Is(err, store.ErrOutOfScope):
		return &Error{Kind: ErrForbidden, Code: CodeForbidden, Message: access.ReasonUnauthorized, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
