package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	barkeepmiddleware "github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/middleware"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/validation"
)

// RouterOptions controls the construction of the barkeep HTTP router.
// Sessions is required; the auth routes are mounted only when Provider and
// Identities are set, the catalog routes only when Catalog and Validator are.
type RouterOptions struct {
	Provider       auth.IdentityProvider
	Sessions       auth.SessionStore
	Identities     identityService
	Catalog        catalogService
	Validator      validation.Validator
	URLs           FlowURLs
	CORSOptions    *cors.Options
	RequestTimeout time.Duration
	Middleware     []func(http.Handler) http.Handler
	HealthHandler  http.HandlerFunc
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the barkeep handlers mounted.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.Sessions == nil {
		log.Println("WARNING: no session store configured, only /health is served")
		return r
	}

	urls := opts.URLs.withDefaults()
	gate := func(required auth.Role) func(http.Handler) http.Handler {
		return barkeepmiddleware.RequireRole(barkeepmiddleware.GateDependencies{
			Sessions: opts.Sessions,
			OnError:  WriteError,
		}, required)
	}

	r.Get("/logout", HandleLogout(opts.Sessions, urls))
	r.With(gate(auth.RoleNone)).Get("/whoami", HandleWhoAmI())

	if opts.Provider != nil && opts.Identities != nil {
		r.Get("/login", HandleLogin(opts.Provider, opts.Sessions, urls))
		r.Method(http.MethodGet, "/auth", HandleCallback(opts.Provider, opts.Sessions, opts.Identities, urls))
		r.Post("/register", HandleRegister(opts.Sessions, opts.Identities, urls))
	} else {
		log.Println("WARNING: Skipping /login, /auth and /register - identity provider not configured")
	}

	if opts.Catalog != nil && opts.Validator != nil {
		h := &drinkHandlers{catalog: opts.Catalog, validator: opts.Validator}

		r.Group(func(r chi.Router) {
			r.Use(gate(auth.RoleEditor))
			r.Get("/drinks", h.listDrinks)
			r.Get("/drink/{id}", h.getDrink)
			r.Post("/drink", h.insertDrink)
			r.Patch("/drink", h.replaceDrink)
			r.Post("/search", h.searchDrinks)
			r.Get("/ingredients", h.listIngredients)
		})
		r.With(gate(auth.RoleAdmin)).Delete("/drink/{id}", h.deleteDrink)
	}

	return r
}
