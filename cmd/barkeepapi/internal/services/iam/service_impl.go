package iam

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/repository"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/telemetry"
)

// iamService implements the Service interface.
type iamService struct {
	users repository.UserRepository
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
type IAMServiceDependencies struct {
	Users repository.UserRepository
}

// NewIAMService creates a new IAM service.
func NewIAMService(deps IAMServiceDependencies) Service {
	return &iamService{users: deps.Users}
}

func (s *iamService) Login(ctx context.Context, subject string) (*auth.Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Login",
		attribute.String(telemetry.AttrSubject, subject),
	)
	defer span.End()

	if subject == "" {
		return nil, fmt.Errorf("login: empty subject")
	}

	user, err := s.users.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.AddEvent(span, "login.unregistered")
			return nil, ErrUserNotFound
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	principal, err := principalFor(user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrRole, principal.Role.String()))

	// Non-critical: a stale last_login_at never blocks a login.
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("warning: failed to update last login for %s: %v", subject, err)
	}
	return principal, nil
}

func (s *iamService) Register(ctx context.Context, subject string) (*auth.Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Register",
		attribute.String(telemetry.AttrSubject, subject),
	)
	defer span.End()

	if subject == "" {
		return nil, fmt.Errorf("register: empty subject")
	}

	created, err := s.users.CreateIfAbsent(ctx, &models.User{
		Subject: subject,
		Role:    auth.DefaultRole.Rank(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("register user: %w", err)
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrUserCreated, created))
	if created {
		log.Printf("registered user %s with role %s", subject, auth.DefaultRole)
	}

	// Read back: a concurrent registration may have won the insert.
	user, err := s.users.GetBySubject(ctx, subject)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load registered user: %w", err)
	}
	return principalFor(user)
}

func (s *iamService) SetRole(ctx context.Context, subject string, role auth.Role) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.SetRole",
		attribute.String(telemetry.AttrSubject, subject),
		attribute.String(telemetry.AttrRole, role.String()),
	)
	defer span.End()

	if !role.Valid() {
		return &auth.InvalidRoleError{Value: role.Rank()}
	}
	if err := s.users.SetRole(ctx, subject, role.Rank()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *iamService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func principalFor(user *models.User) (*auth.Principal, error) {
	role, err := auth.ParseRole(user.Role)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{Subject: user.Subject, Role: role}, nil
}
