package auth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by the gate when the session holds no principal.
var ErrNotAuthenticated = errors.New("current user is not logged in")

// ErrInvalidCallback is returned when an OAuth callback does not belong to a
// login this browser started: the state or PKCE cookie is missing or does not match.
var ErrInvalidCallback = errors.New("invalid oauth callback")

// NotAuthorizedError is returned by the gate when the principal's role is too low.
type NotAuthorizedError struct {
	Held     Role
	Required Role
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("user not authorized to access this resource: user has %s, but %s is required", e.Held, e.Required)
}

// InvalidRoleError reports a stored role value outside the known roles.
type InvalidRoleError struct {
	Value int
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("user role %d is unknown", e.Value)
}

// UpstreamAuthError reports a failed exchange or validation with the identity provider.
type UpstreamAuthError struct {
	Type        string
	Description string
	Err         error
}

func (e *UpstreamAuthError) Error() string {
	msg := "identity provider error"
	if e.Type != "" {
		msg += ": " + e.Type
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamAuthError) Unwrap() error {
	return e.Err
}
