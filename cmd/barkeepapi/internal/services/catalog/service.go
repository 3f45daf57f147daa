package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/bunx"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/repository"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/telemetry"
)

var (
	// ErrDrinkNotFound is returned when no drink has the requested ID.
	ErrDrinkNotFound = errors.New("drink not found")
	// ErrDrinkExists is returned when inserting or renaming onto a taken name.
	ErrDrinkExists = errors.New("drink already exists")
	// ErrInvalidFilter is returned when a list filter expression does not compile.
	ErrInvalidFilter = errors.New("invalid filter expression")
	// ErrInvalidID is returned when a drink ID is not a UUID.
	ErrInvalidID = errors.New("invalid drink id")
	// ErrInvalidLimit is returned for negative list limits.
	ErrInvalidLimit = errors.New("invalid limit")
)

const ingredientsCacheKey = "ingredients"

// Options tunes the service caches.
type Options struct {
	// IngredientCacheTTL bounds how long the distinct ingredient list is served from memory.
	IngredientCacheTTL time.Duration
	// FilterCacheSize is the number of compiled filter expressions kept.
	FilterCacheSize int
}

// ListOptions narrows a drink listing. Limit zero means no limit.
type ListOptions struct {
	Limit  int
	Filter string
}

// DeleteResult reports the outcome of a soft delete.
type DeleteResult struct {
	MatchedCount  int64 `json:"matched_count"`
	ModifiedCount int64 `json:"modified_count"`
}

// Service implements the cocktail catalog on top of a DrinkRepository.
type Service struct {
	drinks      repository.DrinkRepository
	filters     *lru.Cache[string, *bexpr.Evaluator]
	ingredients *expirable.LRU[string, []string]

	// generation counts ingredient invalidations. A fill whose snapshot is
	// stale is dropped so a read racing a write cannot restore old data.
	mu         sync.Mutex
	generation uint64
}

// NewService constructs a catalog service.
func NewService(drinks repository.DrinkRepository, opts Options) (*Service, error) {
	if opts.FilterCacheSize <= 0 {
		opts.FilterCacheSize = 128
	}
	if opts.IngredientCacheTTL <= 0 {
		opts.IngredientCacheTTL = time.Minute
	}

	filters, err := lru.New[string, *bexpr.Evaluator](opts.FilterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create filter cache: %w", err)
	}

	return &Service{
		drinks:      drinks,
		filters:     filters,
		ingredients: expirable.NewLRU[string, []string](1, nil, opts.IngredientCacheTTL),
	}, nil
}

// ListDrinks returns live drinks. The filter is applied before the limit.
func (s *Service) ListDrinks(ctx context.Context, opts ListOptions) ([]models.Drink, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.ListDrinks",
		attribute.Int(telemetry.AttrDrinkLimit, opts.Limit),
		attribute.String(telemetry.AttrDrinkFilter, opts.Filter),
	)
	defer span.End()

	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: must not be negative, got %d", ErrInvalidLimit, opts.Limit)
	}

	if strings.TrimSpace(opts.Filter) == "" {
		return s.drinks.List(ctx, opts.Limit)
	}

	evaluator, err := s.evaluator(opts.Filter)
	if err != nil {
		return nil, err
	}

	all, err := s.drinks.List(ctx, 0)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	matched := make([]models.Drink, 0, len(all))
	for _, drink := range all {
		ok, err := evaluator.Evaluate(filterFields(drink))
		if err != nil || !ok {
			// Evaluation errors (e.g. unknown selector) exclude the drink.
			continue
		}
		matched = append(matched, drink)
		if opts.Limit > 0 && len(matched) == opts.Limit {
			break
		}
	}
	span.SetAttributes(attribute.Int(telemetry.AttrResultCount, len(matched)))
	return matched, nil
}

// GetDrink returns a single drink, including soft-deleted ones.
func (s *Service) GetDrink(ctx context.Context, id string) (*models.Drink, error) {
	canonical, ok := bunx.CanonicalID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	drink, err := s.drinks.GetByID(ctx, canonical)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return drink, nil
}

// CreateDrink inserts a drink and returns its new ID.
func (s *Service) CreateDrink(ctx context.Context, drink *models.Drink) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.CreateDrink",
		attribute.String(telemetry.AttrDrinkName, drink.Name),
	)
	defer span.End()

	drink.ID = ""
	drink.IsDeleted = false

	exists, err := s.drinks.ExistsByName(ctx, drink.Name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: a drink called %s already exists", ErrDrinkExists, drink.Name)
	}

	if err := s.drinks.Create(ctx, drink); err != nil {
		telemetry.RecordError(span, err)
		return "", mapRepositoryError(err)
	}
	span.SetAttributes(attribute.String(telemetry.AttrDrinkID, drink.ID))
	s.invalidateIngredients()
	log.Printf("catalog: created drink %s (%s)", drink.Name, drink.ID)
	return drink.ID, nil
}

// ReplaceDrink overwrites the drink with the same ID and returns the previous version.
func (s *Service) ReplaceDrink(ctx context.Context, drink *models.Drink) (*models.Drink, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.ReplaceDrink",
		attribute.String(telemetry.AttrDrinkID, drink.ID),
	)
	defer span.End()

	canonical, ok := bunx.CanonicalID(drink.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, drink.ID)
	}
	drink.ID = canonical

	previous, err := s.drinks.Replace(ctx, drink)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, mapRepositoryError(err)
	}
	s.invalidateIngredients()
	return previous, nil
}

// DeleteDrink soft-deletes a drink. Deleting an unknown or already deleted
// drink is not an error; the counts report what happened.
func (s *Service) DeleteDrink(ctx context.Context, id string) (DeleteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.DeleteDrink",
		attribute.String(telemetry.AttrDrinkID, id),
	)
	defer span.End()

	canonical, ok := bunx.CanonicalID(id)
	if !ok {
		return DeleteResult{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	matched, modified, err := s.drinks.MarkDeleted(ctx, canonical)
	if err != nil {
		telemetry.RecordError(span, err)
		return DeleteResult{}, err
	}
	span.SetAttributes(attribute.Int64(telemetry.AttrDeleteResult, modified))
	if modified > 0 {
		s.invalidateIngredients()
		log.Printf("catalog: marked drink %s deleted", canonical)
	}
	return DeleteResult{MatchedCount: matched, ModifiedCount: modified}, nil
}

// SearchDrinks finds live drinks whose name matches the query, best match first.
func (s *Service) SearchDrinks(ctx context.Context, name string) ([]models.DrinkMatch, error) {
	query := strings.TrimSpace(name)
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.SearchDrinks",
		attribute.String(telemetry.AttrSearchQuery, query),
	)
	defer span.End()

	matches, err := s.drinks.Search(ctx, query, 0)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrResultCount, len(matches)))
	return matches, nil
}

// Ingredients returns the distinct ingredient names across live drinks.
func (s *Service) Ingredients(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.Ingredients")
	defer span.End()

	if cached, ok := s.ingredients.Get(ingredientsCacheKey); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, false))

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	names, err := s.drinks.DistinctIngredients(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.mu.Lock()
	if s.generation == generation {
		s.ingredients.Add(ingredientsCacheKey, names)
	}
	s.mu.Unlock()
	return names, nil
}

func (s *Service) invalidateIngredients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.ingredients.Purge()
}

// evaluator returns the compiled filter, compiling and caching on first use.
func (s *Service) evaluator(expr string) (*bexpr.Evaluator, error) {
	if cached, ok := s.filters.Get(expr); ok {
		return cached, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	s.filters.Add(expr, evaluator)
	return evaluator, nil
}

// filterFields is the document filter expressions are evaluated against.
// Missing optional fields read as empty strings; ingredients are exposed by name.
func filterFields(drink models.Drink) map[string]any {
	return map[string]any{
		"id":          drink.ID,
		"name":        drink.Name,
		"ingredients": drink.Ingredients.Names(),
		"detritus":    deref(drink.Detritus),
		"method":      deref(drink.Method),
		"history":     deref(drink.History),
		"glassware":   deref(drink.Glassware),
		"ice":         deref(drink.Ice),
		"garnish":     deref(drink.Garnish),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrDrinkNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrDrinkExists, err)
	}
	return err
}
