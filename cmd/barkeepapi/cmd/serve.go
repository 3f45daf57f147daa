package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/db/bunx"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/repository"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/server"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/catalog"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/iam"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/validation"
)

// schemaCacheSize bounds the compiled payload schemas kept in memory.
const schemaCacheSize = 16

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the barkeep API server",
	Long:  `Starts the HTTP server with the OAuth login flow and the catalog endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServe(); err != nil {
			return fmt.Errorf("invalid server configuration: %w", err)
		}

		// Connect to database
		db, err := bunx.NewDBWithPool(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to %s database", bunx.DetectDatabaseType(cfg.DatabaseURL))

		// Initialize repositories
		userRepo := repository.NewBunUserRepository(db)
		drinkRepo := repository.NewBunDrinkRepository(db)

		// Initialize services
		iamService := iam.NewIAMService(iam.IAMServiceDependencies{Users: userRepo})
		catalogService, err := catalog.NewService(drinkRepo, catalog.Options{
			IngredientCacheTTL: cfg.IngredientCacheTTL,
		})
		if err != nil {
			return fmt.Errorf("create catalog service: %w", err)
		}
		validator, err := validation.NewSchemaValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("create payload validator: %w", err)
		}

		secret := []byte(cfg.Session.SecretKey)
		sessions, err := auth.NewCookieStore(auth.CookieStoreOptions{
			Secret: secret,
			MaxAge: cfg.Session.MaxAge,
			Secure: cfg.Session.Secure,
		})
		if err != nil {
			return fmt.Errorf("create session store: %w", err)
		}

		relyingParty, err := auth.NewRelyingParty(cmd.Context(), auth.RelyingPartyOptions{
			OAuth:         cfg.OAuth,
			SessionSecret: secret,
			SecureCookies: cfg.Session.Secure,
			OnError:       server.WriteError,
		})
		if err != nil {
			return fmt.Errorf("failed to create relying party: %w", err)
		}
		log.Printf("OIDC relying party configured for %s", cfg.OAuth.Issuer)

		var corsOpts *cors.Options
		if len(cfg.CORSAllowedOrigins) > 0 {
			opts := server.DefaultCORSOptions()
			opts.AllowedOrigins = cfg.CORSAllowedOrigins
			corsOpts = &opts
		}

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			w.Header().Set("Content-Type", "application/json")
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"status":"degraded","database":false}`)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"status":"ok","database":true}`)
		}

		r := server.NewRouter(server.RouterOptions{
			Provider:   relyingParty,
			Sessions:   sessions,
			Identities: iamService,
			Catalog:    catalogService,
			Validator:  validator,
			URLs: server.FlowURLs{
				Home:     cfg.OAuth.HomeURL,
				Register: cfg.OAuth.RegisterURL,
			},
			CORSOptions:    corsOpts,
			RequestTimeout: cfg.RequestTimeout,
			HealthHandler:  healthHandler,
		})

		// Create HTTP server
		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.RequestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Server URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
