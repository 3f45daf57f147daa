package catalog

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testID      = "0199f9a4-0000-7000-8000-000000000000"
	otherTestID = "0199f9a4-0000-7000-8000-000000000001"
)

// mockDrinkRepository is a func-field mock; nil funcs fail the call.
type mockDrinkRepository struct {
	listFunc         func(ctx context.Context, limit int) ([]models.Drink, error)
	getByIDFunc      func(ctx context.Context, id string) (*models.Drink, error)
	existsByNameFunc func(ctx context.Context, name string) (bool, error)
	createFunc       func(ctx context.Context, drink *models.Drink) error
	replaceFunc      func(ctx context.Context, drink *models.Drink) (*models.Drink, error)
	markDeletedFunc  func(ctx context.Context, id string) (int64, int64, error)
	searchFunc       func(ctx context.Context, query string, limit int) ([]models.DrinkMatch, error)
	distinctFunc     func(ctx context.Context) ([]string, error)
}

var errNotMocked = errors.New("not mocked")

func (m *mockDrinkRepository) List(ctx context.Context, limit int) ([]models.Drink, error) {
	if m.listFunc == nil {
		return nil, errNotMocked
	}
	return m.listFunc(ctx, limit)
}

func (m *mockDrinkRepository) GetByID(ctx context.Context, id string) (*models.Drink, error) {
	if m.getByIDFunc == nil {
		return nil, errNotMocked
	}
	return m.getByIDFunc(ctx, id)
}

func (m *mockDrinkRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	if m.existsByNameFunc == nil {
		return false, errNotMocked
	}
	return m.existsByNameFunc(ctx, name)
}

func (m *mockDrinkRepository) Create(ctx context.Context, drink *models.Drink) error {
	if m.createFunc == nil {
		return errNotMocked
	}
	return m.createFunc(ctx, drink)
}

func (m *mockDrinkRepository) Replace(ctx context.Context, drink *models.Drink) (*models.Drink, error) {
	if m.replaceFunc == nil {
		return nil, errNotMocked
	}
	return m.replaceFunc(ctx, drink)
}

func (m *mockDrinkRepository) MarkDeleted(ctx context.Context, id string) (int64, int64, error) {
	if m.markDeletedFunc == nil {
		return 0, 0, errNotMocked
	}
	return m.markDeletedFunc(ctx, id)
}

func (m *mockDrinkRepository) Search(ctx context.Context, query string, limit int) ([]models.DrinkMatch, error) {
	if m.searchFunc == nil {
		return nil, errNotMocked
	}
	return m.searchFunc(ctx, query, limit)
}

func (m *mockDrinkRepository) DistinctIngredients(ctx context.Context) ([]string, error) {
	if m.distinctFunc == nil {
		return nil, errNotMocked
	}
	return m.distinctFunc(ctx)
}

func newTestService(t *testing.T, repo repository.DrinkRepository) *Service {
	t.Helper()
	svc, err := NewService(repo, Options{IngredientCacheTTL: time.Hour})
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string { return &s }

func catalogFixture() []models.Drink {
	return []models.Drink{
		{ID: "1", Name: "Daiquiri", Glassware: strPtr("coupe"), Ingredients: models.Ingredients{{"ingredient": "rum"}, {"ingredient": "lime"}}},
		{ID: "2", Name: "Negroni", Glassware: strPtr("rocks"), Ingredients: models.Ingredients{{"ingredient": "gin"}, {"ingredient": "campari"}}},
		{ID: "3", Name: "Gimlet", Glassware: strPtr("coupe"), Ingredients: models.Ingredients{{"ingredient": "gin"}, {"ingredient": "lime"}}},
		{ID: "4", Name: "Highball"},
	}
}

func TestListDrinks(t *testing.T) {
	t.Parallel()

	var gotLimit int
	repo := &mockDrinkRepository{
		listFunc: func(ctx context.Context, limit int) ([]models.Drink, error) {
			gotLimit = limit
			drinks := catalogFixture()
			if limit > 0 && limit < len(drinks) {
				drinks = drinks[:limit]
			}
			return drinks, nil
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	t.Run("limit is pushed down without a filter", func(t *testing.T) {
		drinks, err := svc.ListDrinks(ctx, ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, drinks, 2)
		assert.Equal(t, 2, gotLimit)
	})

	t.Run("filter before limit", func(t *testing.T) {
		drinks, err := svc.ListDrinks(ctx, ListOptions{Limit: 1, Filter: `glassware == "coupe"`})
		require.NoError(t, err)
		require.Len(t, drinks, 1)
		assert.Equal(t, "Daiquiri", drinks[0].Name)
		assert.Zero(t, gotLimit)
	})

	t.Run("filter on ingredient names", func(t *testing.T) {
		drinks, err := svc.ListDrinks(ctx, ListOptions{Filter: `"gin" in ingredients`})
		require.NoError(t, err)
		require.Len(t, drinks, 2)
		assert.Equal(t, "Negroni", drinks[0].Name)
		assert.Equal(t, "Gimlet", drinks[1].Name)
	})

	t.Run("missing optional field reads as empty", func(t *testing.T) {
		drinks, err := svc.ListDrinks(ctx, ListOptions{Filter: `glassware == ""`})
		require.NoError(t, err)
		require.Len(t, drinks, 1)
		assert.Equal(t, "Highball", drinks[0].Name)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := svc.ListDrinks(ctx, ListOptions{Filter: `glassware ==`})
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := svc.ListDrinks(ctx, ListOptions{Limit: -1})
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}

func TestGetDrink(t *testing.T) {
	t.Parallel()

	repo := &mockDrinkRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.Drink, error) {
			if id == testID {
				return &models.Drink{ID: id, Name: "Paper Plane"}, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	drink, err := svc.GetDrink(ctx, testID)
	require.NoError(t, err)
	assert.Equal(t, "Paper Plane", drink.Name)

	_, err = svc.GetDrink(ctx, otherTestID)
	assert.ErrorIs(t, err, ErrDrinkNotFound)

	_, err = svc.GetDrink(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCreateDrink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("inserts and returns id", func(t *testing.T) {
		repo := &mockDrinkRepository{
			existsByNameFunc: func(ctx context.Context, name string) (bool, error) { return false, nil },
			createFunc: func(ctx context.Context, drink *models.Drink) error {
				assert.Empty(t, drink.ID)
				drink.ID = testID
				return nil
			},
		}
		svc := newTestService(t, repo)

		id, err := svc.CreateDrink(ctx, &models.Drink{ID: "client-supplied", Name: "Last Word"})
		require.NoError(t, err)
		assert.Equal(t, testID, id)
	})

	t.Run("existing name", func(t *testing.T) {
		repo := &mockDrinkRepository{
			existsByNameFunc: func(ctx context.Context, name string) (bool, error) { return true, nil },
		}
		svc := newTestService(t, repo)

		_, err := svc.CreateDrink(ctx, &models.Drink{Name: "Last Word"})
		assert.ErrorIs(t, err, ErrDrinkExists)
		assert.Contains(t, err.Error(), "Last Word")
	})

	t.Run("lost insert race", func(t *testing.T) {
		repo := &mockDrinkRepository{
			existsByNameFunc: func(ctx context.Context, name string) (bool, error) { return false, nil },
			createFunc: func(ctx context.Context, drink *models.Drink) error {
				return repository.ErrConflict
			},
		}
		svc := newTestService(t, repo)

		_, err := svc.CreateDrink(ctx, &models.Drink{Name: "Last Word"})
		assert.ErrorIs(t, err, ErrDrinkExists)
	})
}

func TestReplaceDrink(t *testing.T) {
	t.Parallel()

	repo := &mockDrinkRepository{
		replaceFunc: func(ctx context.Context, drink *models.Drink) (*models.Drink, error) {
			if drink.ID != testID {
				return nil, repository.ErrNotFound
			}
			return &models.Drink{ID: testID, Name: "Old Name"}, nil
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	previous, err := svc.ReplaceDrink(ctx, &models.Drink{ID: testID, Name: "New Name"})
	require.NoError(t, err)
	assert.Equal(t, "Old Name", previous.Name)

	_, err = svc.ReplaceDrink(ctx, &models.Drink{ID: otherTestID, Name: "New Name"})
	assert.ErrorIs(t, err, ErrDrinkNotFound)

	_, err = svc.ReplaceDrink(ctx, &models.Drink{Name: "No ID"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestDeleteDrink(t *testing.T) {
	t.Parallel()

	repo := &mockDrinkRepository{
		markDeletedFunc: func(ctx context.Context, id string) (int64, int64, error) {
			return 1, 1, nil
		},
	}
	svc := newTestService(t, repo)

	result, err := svc.DeleteDrink(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{MatchedCount: 1, ModifiedCount: 1}, result)

	_, err = svc.DeleteDrink(context.Background(), "42")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestIngredientsCache(t *testing.T) {
	t.Parallel()

	calls := 0
	repo := &mockDrinkRepository{
		distinctFunc: func(ctx context.Context) ([]string, error) {
			calls++
			return []string{"gin", "lime"}, nil
		},
		markDeletedFunc: func(ctx context.Context, id string) (int64, int64, error) {
			return 1, 1, nil
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		names, err := svc.Ingredients(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"gin", "lime"}, names)
	}
	assert.Equal(t, 1, calls)

	_, err := svc.DeleteDrink(ctx, testID)
	require.NoError(t, err)

	_, err = svc.Ingredients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIngredientsFillRacingWrite(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	repo := &mockDrinkRepository{
		distinctFunc: func(ctx context.Context) ([]string, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release
				return []string{"gin"}, nil
			}
			return []string{"gin", "rum"}, nil
		},
		existsByNameFunc: func(ctx context.Context, name string) (bool, error) {
			return false, nil
		},
		createFunc: func(ctx context.Context, drink *models.Drink) error {
			drink.ID = testID
			return nil
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	done := make(chan []string)
	go func() {
		names, _ := svc.Ingredients(ctx)
		done <- names
	}()

	<-started
	_, err := svc.CreateDrink(ctx, &models.Drink{Name: "Daiquiri", Ingredients: models.Ingredients{{"ingredient": "rum"}}})
	require.NoError(t, err)
	close(release)
	assert.Equal(t, []string{"gin"}, <-done)

	names, err := svc.Ingredients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gin", "rum"}, names)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDrinkIDForms(t *testing.T) {
	t.Parallel()

	var seen []string
	repo := &mockDrinkRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.Drink, error) {
			seen = append(seen, id)
			return &models.Drink{ID: id, Name: "Paper Plane"}, nil
		},
		replaceFunc: func(ctx context.Context, drink *models.Drink) (*models.Drink, error) {
			seen = append(seen, drink.ID)
			return &models.Drink{ID: drink.ID, Name: "Paper Plane"}, nil
		},
		markDeletedFunc: func(ctx context.Context, id string) (int64, int64, error) {
			seen = append(seen, id)
			return 1, 1, nil
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.GetDrink(ctx, strings.ToUpper(testID))
	require.NoError(t, err)
	_, err = svc.ReplaceDrink(ctx, &models.Drink{ID: "urn:uuid:" + testID, Name: "Paper Plane"})
	require.NoError(t, err)
	_, err = svc.DeleteDrink(ctx, "{"+testID+"}")
	require.NoError(t, err)

	assert.Equal(t, []string{testID, testID, testID}, seen)
}

func TestIngredientsErrorNotCached(t *testing.T) {
	t.Parallel()

	fail := true
	repo := &mockDrinkRepository{
		distinctFunc: func(ctx context.Context) ([]string, error) {
			if fail {
				return nil, errors.New("db down")
			}
			return []string{"rum"}, nil
		},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Ingredients(ctx)
	require.Error(t, err)

	fail = false
	names, err := svc.Ingredients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rum"}, names)
}

func TestSearchDrinks(t *testing.T) {
	t.Parallel()

	var gotQuery string
	repo := &mockDrinkRepository{
		searchFunc: func(ctx context.Context, query string, limit int) ([]models.DrinkMatch, error) {
			gotQuery = query
			return []models.DrinkMatch{{Drink: models.Drink{Name: "Whiskey Sour"}, Score: 0.8}}, nil
		},
	}
	svc := newTestService(t, repo)

	matches, err := svc.SearchDrinks(context.Background(), "  sour ")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "sour", gotQuery)
}
