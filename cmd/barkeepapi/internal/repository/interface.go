package repository

import (
	"context"
	"errors"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// UserRepository exposes persistence operations for identity records.
type UserRepository interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
	// CreateIfAbsent inserts user unless a record with the same subject exists.
	// It reports whether this call created the record.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	UpdateLastLogin(ctx context.Context, id string) error
	SetRole(ctx context.Context, subject string, role int) error
	List(ctx context.Context) ([]models.User, error)
}

// DrinkRepository exposes persistence operations for the cocktail catalog.
// Soft-deleted drinks are invisible to every read except GetByID.
type DrinkRepository interface {
	List(ctx context.Context, limit int) ([]models.Drink, error)
	GetByID(ctx context.Context, id string) (*models.Drink, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, drink *models.Drink) error
	// Replace overwrites the stored drink with the same ID and returns the previous version.
	Replace(ctx context.Context, drink *models.Drink) (*models.Drink, error)
	// MarkDeleted flags a drink as deleted and reports matched and modified row counts.
	MarkDeleted(ctx context.Context, id string) (matched int64, modified int64, err error)
	Search(ctx context.Context, query string, limit int) ([]models.DrinkMatch, error)
	DistinctIngredients(ctx context.Context) ([]string, error)
}
