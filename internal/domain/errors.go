package domain

import "fmt"

// ValidationError indicates malformed input (HTTP 400)
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthenticationError indicates a missing or invalid session (HTTP 401)
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError indicates a valid session with insufficient rights
// (HTTP 403)
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// ConflictError indicates a uniqueness violation
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError indicates a missing entity
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// DependencyError indicates a failure of an external collaborator. State
// persisted before the collaborator call is kept (HTTP 500, no rollback).
type DependencyError struct {
	Message string
	Err     error
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DependencyError) Unwrap() error { return e.Err }
