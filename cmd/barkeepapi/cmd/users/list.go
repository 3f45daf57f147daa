package users

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/cmd/cmdutil"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := cmdutil.NewIAMServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		users, err := bundle.Service.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SUBJECT\tROLE\tCREATED\tLAST LOGIN")
		for _, u := range users {
			role := auth.Role(u.Role).String()
			lastLogin := "never"
			if u.LastLoginAt != nil {
				lastLogin = u.LastLoginAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Subject, role, u.CreatedAt.Format(time.RFC3339), lastLogin)
		}
		return tw.Flush()
	},
}
