package domain

import "fmt"

// Error taxonomy surfaced to API callers. None of these are retried by the
// service itself; a ConflictError tells the caller to re-fetch and retry the
// whole command.

type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{fmt.Sprintf(format, args...)}
}

type AuthorizationError struct{ msg string }

func (e *AuthorizationError) Error() string { return e.msg }

func Authorizationf(format string, args ...any) error {
	return &AuthorizationError{fmt.Sprintf(format, args...)}
}

type ConflictError struct{ msg string }

func (e *ConflictError) Error() string { return e.msg }

func Conflictf(format string, args ...any) error {
	return &ConflictError{fmt.Sprintf(format, args...)}
}

// ChainStateError reports an on-chain precondition violation, e.g. the swap
// is already registered, executed or canceled, or a pending transaction
// exists.
type ChainStateError struct{ msg string }

func (e *ChainStateError) Error() string { return e.msg }

func ChainStatef(format string, args ...any) error {
	return &ChainStateError{fmt.Sprintf(format, args...)}
}

type NotFoundError struct{ msg string }

func (e *NotFoundError) Error() string { return e.msg }

func NotFoundf(format string, args ...any) error {
	return &NotFoundError{fmt.Sprintf(format, args...)}
}
