package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewOIDCCmd creates the OIDC configuration command
func NewOIDCCmd() *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI, jwksURL string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure OIDC provider",
		Long:  "Create or update an OIDC provider used to verify bearer tokens. The name is any identifier (e.g. 'cognito', 'okta'); servers use OIDC_PROVIDER to pick one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.TrimSpace(args[0])
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}
			issuer = strings.TrimSuffix(issuer, "/")
			if jwksURL == "" {
				jwksURL = issuer + "/.well-known/jwks.json"
			}

			db, _, closeDB, err := openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()

			repo := database.NewOIDCConfigRepository(db)
			ctx := context.Background()

			c, err := repo.GetByProvider(ctx, provider)
			creating := errors.Is(err, sql.ErrNoRows)
			if err != nil && !creating {
				return err
			}
			if creating {
				c = &models.OIDCConfig{ID: uuid.New(), Provider: provider}
			}

			c.Issuer = issuer
			c.ClientID = clientID
			c.RedirectURI = redirectURI
			c.JWKSUrl = &jwksURL
			c.Domain = optional(domain)
			c.ClientSecret = optional(clientSecret)

			if creating {
				if err := repo.Create(ctx, c); err != nil {
					return fmt.Errorf("failed to create OIDC config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created OIDC configuration for provider: %s\n", provider)
				return nil
			}
			if err := repo.Update(ctx, c); err != nil {
				return fmt.Errorf("failed to update OIDC config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated OIDC configuration for provider: %s\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "OAuth2 domain (optional, e.g. a Cognito custom domain)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (defaults to <issuer>/.well-known/jwks.json)")

	return cmd
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
