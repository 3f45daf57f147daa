package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects every schema migration; files register themselves in init.
var Migrations = migrate.NewMigrations()
