package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/service"
)

type tokenOutput struct {
	AccountID   string   `json:"account_id"`
	Email       string   `json:"email"`
	TokenID     string   `json:"token_id"`
	Token       string   `json:"token"`
	TokenPrefix string   `json:"token_prefix"`
	Scopes      []string `json:"scopes"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	cmd.AddCommand(newTokenIssueCmd(a))

	return cmd
}

func newTokenIssueCmd(a *app) *cobra.Command {
	var (
		accountID   string
		name        string
		scopesInput string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token for an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := checkFormat(format)
			if err != nil {
				return err
			}
			scopes, err := parseScopes(scopesInput)
			if err != nil {
				return err
			}

			d, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			account, err := d.accounts.Me(cmd.Context(), accountID)
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("account not found: %s", accountID)
			}
			if err != nil {
				return fmt.Errorf("look up account: %w", err)
			}

			issued, err := d.accounts.IssueToken(cmd.Context(), account.ID, name, scopes)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			out := tokenOutput{
				AccountID:   account.ID,
				Email:       account.Email,
				TokenID:     issued.ID,
				Token:       issued.Token,
				TokenPrefix: issued.Prefix,
				Scopes:      issued.Scopes,
			}
			if issued.ExpiresAt != nil {
				out.ExpiresAt = issued.ExpiresAt.Format(time.RFC3339)
			}

			w := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			_, _ = fmt.Fprintln(w, out.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID to own the token")
	cmd.Flags().StringVar(&name, "name", "admin-cli", "Token name")
	cmd.Flags().StringVar(&scopesInput, "scopes", strings.Join(model.DefaultScopes, ","), "Comma-separated scopes (content:read,content:write,billing,admin)")
	cmd.Flags().StringVar(&format, "format", "plain", "Output format: plain or json")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
