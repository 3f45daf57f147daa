package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/cmd/users"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/config"
)

var cfg *config.Config

var envFile string

var rootCmd = &cobra.Command{
	Use:   "barkeepapi",
	Short: "Barkeep API server for the cocktail catalog",
	Long: `Barkeep API serves the cocktail catalog over HTTP. Browsers sign in with
Google OAuth; editors maintain drinks and ingredients, admins may also delete.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFile(envFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := applyFlagOverrides(cmd, cfg); err != nil {
			return err
		}
		if cfg.Debug {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		users.SetConfig(cfg)
		return nil
	},
}

// applyFlagOverrides copies explicitly set persistent flags over env values.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("db-url") {
		c.DatabaseURL, _ = flags.GetString("db-url")
	}
	if flags.Changed("server-addr") {
		c.ServerAddr, _ = flags.GetString("server-addr")
	}
	if flags.Changed("server-url") {
		c.ServerURL, _ = flags.GetString("server-url")
	}
	if flags.Changed("debug") {
		c.Debug, _ = flags.GetBool("debug")
	}
	return c.Validate()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Optional dotenv file read before the environment")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().String("server-url", "", "Public base URL of the server (env: SERVER_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")

	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
