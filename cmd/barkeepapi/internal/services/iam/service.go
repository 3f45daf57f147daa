package iam

import (
	"context"
	"errors"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
)

// ErrUserNotFound is returned by Login when the subject has never registered.
var ErrUserNotFound = errors.New("user not found")

// Service provides identity operations.
type Service interface {
	// Login resolves the stored role for subject and records the login time.
	//
	// Returns:
	//   - (principal, nil): the subject is registered with a known role
	//   - (nil, ErrUserNotFound): no identity record exists for subject
	//   - (nil, *auth.InvalidRoleError): the stored role is not a known rank
	Login(ctx context.Context, subject string) (*auth.Principal, error)

	// Register creates the identity record for subject with auth.DefaultRole
	// unless one already exists, then returns the stored identity. Concurrent
	// calls for the same subject yield exactly one record.
	Register(ctx context.Context, subject string) (*auth.Principal, error)

	// SetRole changes the role stored for subject.
	SetRole(ctx context.Context, subject string, role auth.Role) error

	// ListUsers returns every identity record, newest first.
	ListUsers(ctx context.Context) ([]models.User, error)
}
