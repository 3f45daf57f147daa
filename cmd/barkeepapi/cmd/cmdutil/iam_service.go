package cmdutil

import (
	"fmt"

	"github.com/uptrace/bun"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/config"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/bunx"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/repository"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/iam"
)

// IAMServiceBundle bundles the service with its underlying DB connection so
// the caller can release both at once.
type IAMServiceBundle struct {
	Service iam.Service
	DB      *bun.DB
}

// Close releases the underlying database connection.
func (b *IAMServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	bunx.Close(b.DB)
}

// NewIAMServiceBundle centralizes IAM service construction for CLI commands.
func NewIAMServiceBundle(cfg *config.Config) (*IAMServiceBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	db, err := bunx.NewDBWithPool(cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &IAMServiceBundle{
		Service: iam.NewIAMService(iam.IAMServiceDependencies{
			Users: repository.NewBunUserRepository(db),
		}),
		DB: db,
	}, nil
}
