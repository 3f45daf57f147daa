package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/bunx"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunDrinkRepository implements DrinkRepository using Bun ORM
type BunDrinkRepository struct {
	db *bun.DB
}

var _ DrinkRepository = (*BunDrinkRepository)(nil)

// NewBunDrinkRepository creates a new Bun-based drink repository
func NewBunDrinkRepository(db *bun.DB) *BunDrinkRepository {
	return &BunDrinkRepository{db: db}
}

// List returns live drinks in insertion order. A limit of zero means no limit.
func (r *BunDrinkRepository) List(ctx context.Context, limit int) ([]models.Drink, error) {
	drinks := []models.Drink{}
	q := r.db.NewSelect().
		Model(&drinks).
		Where("d.is_deleted = ?", false).
		Order("d.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	return drinks, nil
}

// GetByID retrieves a drink by ID, including soft-deleted drinks
func (r *BunDrinkRepository) GetByID(ctx context.Context, id string) (*models.Drink, error) {
	return getDrink(ctx, r.db, id)
}

func getDrink(ctx context.Context, db bun.IDB, id string) (*models.Drink, error) {
	drink := new(models.Drink)
	err := db.NewSelect().
		Model(drink).
		Where("d.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("drink %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get drink: %w", err)
	}
	return drink, nil
}

// ExistsByName reports whether any drink, live or deleted, uses the name.
func (r *BunDrinkRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Drink)(nil)).
		Where("d.name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check drink name: %w", err)
	}
	return exists, nil
}

// Create inserts a new drink, assigning an ID when missing
func (r *BunDrinkRepository) Create(ctx context.Context, drink *models.Drink) error {
	if drink.ID == "" {
		drink.ID = bunx.NewUUIDv7()
	}
	if drink.Ingredients == nil {
		drink.Ingredients = models.Ingredients{}
	}
	now := time.Now().UTC()
	drink.CreatedAt = now
	drink.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(drink).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("drink %q: %w", drink.Name, ErrConflict)
		}
		return fmt.Errorf("create drink: %w", err)
	}
	return nil
}

// Replace overwrites every user-editable field of the stored drink and
// returns the version that was replaced.
func (r *BunDrinkRepository) Replace(ctx context.Context, drink *models.Drink) (*models.Drink, error) {
	var previous *models.Drink
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := new(models.Drink)
		q := tx.NewSelect().
			Model(current).
			Where("d.id = ?", drink.ID)
		if bunx.IsPostgreSQL(tx) {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("drink %s: %w", drink.ID, ErrNotFound)
			}
			return fmt.Errorf("load drink: %w", err)
		}
		previous = current

		if drink.Ingredients == nil {
			drink.Ingredients = models.Ingredients{}
		}
		drink.CreatedAt = current.CreatedAt
		drink.IsDeleted = current.IsDeleted
		drink.UpdatedAt = time.Now().UTC()

		_, err := tx.NewUpdate().
			Model(drink).
			Column("name", "ingredients", "detritus", "method", "history", "glassware", "ice", "garnish", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("drink %q: %w", drink.Name, ErrConflict)
			}
			return fmt.Errorf("replace drink: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// MarkDeleted soft-deletes a drink. matched counts drinks with the ID,
// modified counts drinks that were live before the call.
func (r *BunDrinkRepository) MarkDeleted(ctx context.Context, id string) (int64, int64, error) {
	if _, err := getDrink(ctx, r.db, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	result, err := r.db.NewUpdate().
		Model((*models.Drink)(nil)).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("mark drink deleted: %w", err)
	}
	modified, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("get rows affected: %w", err)
	}
	return 1, modified, nil
}

// Search matches live drinks by name, best match first. PostgreSQL ranks with
// full-text search; SQLite falls back to a case-insensitive substring match
// with a constant score.
func (r *BunDrinkRepository) Search(ctx context.Context, query string, limit int) ([]models.DrinkMatch, error) {
	matches := []models.DrinkMatch{}
	q := r.db.NewSelect().
		Model(&matches).
		Where("d.is_deleted = ?", false)

	if bunx.IsPostgreSQL(r.db) {
		q = q.ColumnExpr("d.*").
			ColumnExpr("ts_rank(to_tsvector('english', d.name), plainto_tsquery('english', ?)) AS score", query).
			Where("to_tsvector('english', d.name) @@ plainto_tsquery('english', ?)", query).
			OrderExpr("score DESC").
			Order("d.name ASC")
	} else {
		q = q.ColumnExpr("d.*").
			ColumnExpr("1.0 AS score").
			Where("lower(d.name) LIKE ?", "%"+strings.ToLower(query)+"%").
			Order("d.name ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("search drinks: %w", err)
	}
	return matches, nil
}

// DistinctIngredients returns the sorted set of ingredient names used by live drinks.
func (r *BunDrinkRepository) DistinctIngredients(ctx context.Context) ([]string, error) {
	var query string
	if bunx.IsPostgreSQL(r.db) {
		query = `
			SELECT DISTINCT elem->>'ingredient' AS name
			FROM drinks, jsonb_array_elements(drinks.ingredients) AS elem
			WHERE drinks.is_deleted = FALSE
			  AND jsonb_typeof(elem->'ingredient') = 'string'
			  AND elem->>'ingredient' <> ''
			ORDER BY name`
	} else {
		query = `
			SELECT DISTINCT json_extract(je.value, '$.ingredient') AS name
			FROM drinks, json_each(drinks.ingredients) AS je
			WHERE drinks.is_deleted = 0
			  AND json_type(je.value, '$.ingredient') = 'text'
			  AND json_extract(je.value, '$.ingredient') <> ''
			ORDER BY name`
	}

	names := []string{}
	if err := r.db.NewRaw(query).Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("distinct ingredients: %w", err)
	}
	return names, nil
}
