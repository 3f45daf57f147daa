package users

import (
	"github.com/spf13/cobra"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/config"
)

var cfg *config.Config

// SetConfig hands the configuration loaded by the root command to the users commands.
func SetConfig(c *config.Config) {
	cfg = c
}

// UsersCmd is the parent command for identity management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage identity records",
	Long: `Commands for inspecting registered identities and changing their roles.
Role changes take effect the next time the user logs in.`,
}

func init() {
	setRoleCmd.Flags().StringVar(&subjectFlag, "subject", "", "Provider subject (sub claim) of the user")
	setRoleCmd.Flags().StringVar(&roleFlag, "role", "", "Role to grant: none, editor, admin")

	UsersCmd.AddCommand(listCmd, setRoleCmd)
}
