package users

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/cmd/cmdutil"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/iam"
)

var (
	subjectFlag string
	roleFlag    string
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Change the role of a registered user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if subjectFlag == "" {
			return fmt.Errorf("--subject flag is required")
		}
		if roleFlag == "" {
			return fmt.Errorf("--role flag is required")
		}

		role, err := auth.ParseRoleName(roleFlag)
		if err != nil {
			return fmt.Errorf("invalid --role: %w", err)
		}

		bundle, err := cmdutil.NewIAMServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		if err := bundle.Service.SetRole(cmd.Context(), subjectFlag, role); err != nil {
			if errors.Is(err, iam.ErrUserNotFound) {
				return fmt.Errorf("no user registered with subject %q", subjectFlag)
			}
			return fmt.Errorf("failed to set role: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set role of %s to %s (effective at next login)\n", subjectFlag, role)
		return nil
	},
}
