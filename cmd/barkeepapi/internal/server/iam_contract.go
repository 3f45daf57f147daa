package server

import (
	"context"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/catalog"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/iam"
)

// identityService defines the exact IAM methods used by the login flow.
type identityService interface {
	Login(ctx context.Context, subject string) (*auth.Principal, error)
	Register(ctx context.Context, subject string) (*auth.Principal, error)
}

// catalogService defines the catalog operations used by resource handlers.
type catalogService interface {
	ListDrinks(ctx context.Context, opts catalog.ListOptions) ([]models.Drink, error)
	GetDrink(ctx context.Context, id string) (*models.Drink, error)
	CreateDrink(ctx context.Context, drink *models.Drink) (string, error)
	ReplaceDrink(ctx context.Context, drink *models.Drink) (*models.Drink, error)
	DeleteDrink(ctx context.Context, id string) (catalog.DeleteResult, error)
	SearchDrinks(ctx context.Context, name string) ([]models.DrinkMatch, error)
	Ingredients(ctx context.Context) ([]string, error)
}

// Compile-time verification that the services satisfy the handler contracts.
var (
	_ identityService = (iam.Service)(nil)
	_ catalogService  = (*catalog.Service)(nil)
)
