package service

import (
	"errors"
	"fmt"
)

var (
	ErrSessionMissing       = errors.New("session token missing")
	ErrSessionInvalid       = errors.New("session token invalid")
	ErrSessionExpired       = errors.New("session token expired")
	ErrUserGone             = errors.New("session identity no longer exists")
	ErrVerificationRequired = errors.New("identity not verified")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("relationship already exists")
	ErrInvalidSelf        = errors.New("cannot invite yourself")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email in use")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailSendFailure   = errors.New("email send failed")
)

// ValidationError describe un campo requerido ausente o mal formado.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UnauthorizedPeerError nombra al par que no autorizo ser agregado a tareas.
type UnauthorizedPeerError struct {
	PeerID      string
	DisplayName string
}

func (e *UnauthorizedPeerError) Error() string {
	return fmt.Sprintf("%s has not allowed you to add them to tasks", e.DisplayName)
}

func (e *UnauthorizedPeerError) Unwrap() error { return ErrUnauthorized }
