package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
		Long:  "Issue, list and revoke bearer tokens for users",
	}

	cmd.AddCommand(TokenIssueCmd())
	cmd.AddCommand(TokenListCmd())
	cmd.AddCommand(TokenRevokeCmd())

	return cmd
}

func TokenIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a new access token",
		Long:  "Issue a new bearer token for the user. The raw token is printed once and cannot be recovered.",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenIssue,
	}

	cmd.Flags().StringP("name", "n", "default", "Token name")

	return cmd
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, _ := cmd.Flags().GetString("name")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := newAuthService(pool)

	raw, err := authSvc.IssueToken(ctx, args[0], name)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Println("Save this token now; it will not be shown again:")
	fmt.Println(raw)
	return nil
}

func TokenListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			authSvc := newAuthService(pool)
			tokens, err := authSvc.ListTokens(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}

			if len(tokens) == 0 {
				fmt.Println("No tokens found")
				return nil
			}

			for _, token := range tokens {
				status := "active"
				if token.Revoked() {
					status = "revoked"
				}
				fmt.Printf("%s  %s  %s  %s\n", token.ID, token.Name, status, token.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func TokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			authSvc := newAuthService(pool)
			if err := authSvc.RevokeToken(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to revoke token: %w", err)
			}

			fmt.Printf("Revoked token %s\n", args[0])
			return nil
		},
	}
}
