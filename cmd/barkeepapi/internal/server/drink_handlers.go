package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/models"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/catalog"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/validation"
)

// maxDrinkBodyBytes caps drink payloads.
const maxDrinkBodyBytes = 1 << 20

// drinkPayload is the request body of POST /drink, PATCH /drink and POST /search.
type drinkPayload struct {
	ID          *string            `json:"id"`
	Name        string             `json:"name"`
	Ingredients models.Ingredients `json:"ingredients"`
	Detritus    *string            `json:"detritus"`
	Method      *string            `json:"method"`
	History     *string            `json:"history"`
	Glassware   *string            `json:"glassware"`
	Ice         *string            `json:"ice"`
	Garnish     *string            `json:"garnish"`
}

func (p drinkPayload) toModel() *models.Drink {
	drink := &models.Drink{
		Name:        p.Name,
		Ingredients: p.Ingredients,
		Detritus:    p.Detritus,
		Method:      p.Method,
		History:     p.History,
		Glassware:   p.Glassware,
		Ice:         p.Ice,
		Garnish:     p.Garnish,
	}
	if drink.Ingredients == nil {
		drink.Ingredients = models.Ingredients{}
	}
	if p.ID != nil {
		drink.ID = *p.ID
	}
	return drink
}

// DrinkListResponse is the body of GET /drinks.
type DrinkListResponse struct {
	Drinks []models.Drink `json:"drinks"`
}

// InsertResponse is the body of POST /drink.
type InsertResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"inserted_id"`
}

type drinkHandlers struct {
	catalog   catalogService
	validator validation.Validator
}

// decodeDrink reads the body, validates it against schema and decodes it.
func (h *drinkHandlers) decodeDrink(w http.ResponseWriter, r *http.Request, schema string) (*drinkPayload, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDrinkBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrInvalidRequest, err)
	}
	if err := h.validator.Validate(schema, body); err != nil {
		return nil, err
	}
	var payload drinkPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrInvalidRequest, err)
	}
	return &payload, nil
}

// listDrinks handles GET /drinks?limit=N&filter=EXPR
func (h *drinkHandlers) listDrinks(w http.ResponseWriter, r *http.Request) {
	opts := catalog.ListOptions{Filter: r.URL.Query().Get("filter")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, r, fmt.Errorf("%w: limit must be an integer", ErrInvalidRequest))
			return
		}
		opts.Limit = limit
	}

	drinks, err := h.catalog.ListDrinks(r.Context(), opts)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, DrinkListResponse{Drinks: drinks})
}

// getDrink handles GET /drink/{id}
func (h *drinkHandlers) getDrink(w http.ResponseWriter, r *http.Request) {
	drink, err := h.catalog.GetDrink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, drink)
}

// insertDrink handles POST /drink
func (h *drinkHandlers) insertDrink(w http.ResponseWriter, r *http.Request) {
	payload, err := h.decodeDrink(w, r, validation.SchemaDrink)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := h.catalog.CreateDrink(r.Context(), payload.toModel())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, InsertResponse{Acknowledged: true, InsertedID: id})
}

// replaceDrink handles PATCH /drink and returns the pre-modification drink
func (h *drinkHandlers) replaceDrink(w http.ResponseWriter, r *http.Request) {
	payload, err := h.decodeDrink(w, r, validation.SchemaDrinkUpdate)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	previous, err := h.catalog.ReplaceDrink(r.Context(), payload.toModel())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, previous)
}

// deleteDrink handles DELETE /drink/{id}
func (h *drinkHandlers) deleteDrink(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.DeleteDrink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// searchDrinks handles POST /search
func (h *drinkHandlers) searchDrinks(w http.ResponseWriter, r *http.Request) {
	payload, err := h.decodeDrink(w, r, validation.SchemaDrink)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	matches, err := h.catalog.SearchDrinks(r.Context(), payload.Name)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, matches)
}

// listIngredients handles GET /ingredients
func (h *drinkHandlers) listIngredients(w http.ResponseWriter, r *http.Request) {
	names, err := h.catalog.Ingredients(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	render.JSON(w, r, names)
}
