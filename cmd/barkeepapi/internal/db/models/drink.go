package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Drink is a cocktail recipe in the catalog.
type Drink struct {
	bun.BaseModel `bun:"table:drinks,alias:d"`

	ID          string      `bun:"id,pk,type:uuid" json:"id"`
	Name        string      `bun:"name,notnull,unique" json:"name"`
	Ingredients Ingredients `bun:"ingredients,type:jsonb,notnull" json:"ingredients"`
	Detritus    *string     `bun:"detritus" json:"detritus"`
	Method      *string     `bun:"method" json:"method"`
	History     *string     `bun:"history" json:"history"`
	Glassware   *string     `bun:"glassware" json:"glassware"`
	Ice         *string     `bun:"ice" json:"ice"`
	Garnish     *string     `bun:"garnish" json:"garnish"`
	IsDeleted   bool        `bun:"is_deleted,notnull,default:false" json:"is_deleted,omitempty"`
	CreatedAt   time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"-"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull,default:current_timestamp" json:"-"`
}

// DrinkMatch is a drink returned by a text search with its relevance score.
type DrinkMatch struct {
	Drink `bun:",extend"`

	Score float64 `bun:"score,scanonly" json:"score"`
}

// Ingredient is one line of a recipe, e.g. {"ingredient": "gin", "quantity": 2, "unit": "oz"}.
// Recipes may carry extra keys, so ingredients are kept as free-form objects.
type Ingredient map[string]any

// Name returns the ingredient's "ingredient" value, or "" when absent.
func (i Ingredient) Name() string {
	name, _ := i["ingredient"].(string)
	return name
}

// Ingredients is stored as a JSON array.
type Ingredients []Ingredient

// Scan implements sql.Scanner for reading from database
func (in *Ingredients) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*in = Ingredients{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan Ingredients: expected []byte or string, got %T", value)
	}
	var decoded Ingredients
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to scan Ingredients: %w", err)
	}
	if decoded == nil {
		decoded = Ingredients{}
	}
	*in = decoded
	return nil
}

// Value implements driver.Valuer for writing to database
func (in Ingredients) Value() (driver.Value, error) {
	if in == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Names returns the non-empty ingredient names in recipe order.
func (in Ingredients) Names() []string {
	names := make([]string, 0, len(in))
	for _, ingredient := range in {
		if name := ingredient.Name(); name != "" {
			names = append(names, name)
		}
	}
	return names
}
