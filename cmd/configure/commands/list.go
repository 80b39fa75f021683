package commands

import (
	"context"
	"fmt"

	"github.com/benvon/moodhome/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			db, _, closeDB, err := openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()

			configs, err := database.NewOIDCConfigRepository(db).GetAll(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list OIDC configs: %w", err)
			}
			if len(configs) == 0 {
				fmt.Fprintln(out, "No OIDC providers configured")
				return nil
			}

			fmt.Fprintln(out, "Configured OIDC providers:")
			for _, c := range configs {
				fmt.Fprintf(out, "  - Provider: %s\n", c.Provider)
				fmt.Fprintf(out, "    Issuer: %s\n", c.Issuer)
				fmt.Fprintf(out, "    Client ID: %s\n", c.ClientID)
				fmt.Fprintf(out, "    Redirect URI: %s\n", c.RedirectURI)
				if c.JWKSUrl != nil {
					fmt.Fprintf(out, "    JWKS URL: %s\n", *c.JWKSUrl)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
