package migrations

import (
	"context"
	"fmt"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/bunx"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261019000000, down_20261019000000)
}

// up_20261019000000 creates the identity and catalog tables
func up_20261019000000(ctx context.Context, db *bun.DB) error {
	// 1. Create users table
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	// The unique subject index is what serializes concurrent first-login registrations.
	_, err = db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_subject ON users(subject)`)
	if err != nil {
		return fmt.Errorf("failed to create users subject index: %w", err)
	}
	fmt.Println(" OK")

	// 2. Create drinks table
	fmt.Print(" [up] creating drinks table...")
	_, err = db.NewCreateTable().
		Model((*models.Drink)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create drinks table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_drinks_name ON drinks(name)`)
	if err != nil {
		return fmt.Errorf("failed to create drinks name index: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_drinks_is_deleted ON drinks(is_deleted)`)
	if err != nil {
		return fmt.Errorf("failed to create drinks is_deleted index: %w", err)
	}

	if bunx.IsPostgreSQL(db) {
		// Full-text search over drink names
		_, err = db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_drinks_name_fts
			ON drinks USING gin (to_tsvector('english', name))
		`)
		if err != nil {
			return fmt.Errorf("failed to create drinks full-text index: %w", err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20261019000000 drops the identity and catalog tables
func down_20261019000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping tables...")

	cascade := ""
	if bunx.IsPostgreSQL(db) {
		cascade = " CASCADE"
	}
	for _, table := range []string{"drinks", "users"} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s%s", table, cascade)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	fmt.Println(" OK")
	return nil
}
