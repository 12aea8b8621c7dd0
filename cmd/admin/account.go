package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
	"github.com/inkwell/inkwell/internal/service"
)

type accountOutput struct {
	Account model.AccountView  `json:"account"`
	Token   *model.IssuedToken `json:"token,omitempty"`
}

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountCreateCmd(a),
		newAccountShowCmd(a),
	)

	return cmd
}

func newAccountCreateCmd(a *app) *cobra.Command {
	var (
		name     string
		email    string
		password string
		plan     string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account and issue its first access token",
		Long:  "Create an account on the free plan, optionally granting a paid plan. The password is read from stdin when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := checkFormat(format)
			if err != nil {
				return err
			}

			d, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			var grant *model.Plan
			if plan != "" && model.PlanID(plan) != d.plans.Free().ID {
				p, ok := d.plans.Purchasable(model.PlanID(plan))
				if !ok {
					return fmt.Errorf("unknown plan: %s", plan)
				}
				grant = &p
			}

			if password == "" {
				password, err = readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			session, err := d.accounts.Register(cmd.Context(), service.RegisterInput{
				Name:     name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}

			view := session.Account
			if grant != nil {
				account, err := d.store.ApplyPlanGrant(cmd.Context(), view.ID, grant.ID, grant.Credits)
				if err != nil {
					return fmt.Errorf("grant %s plan: %w", grant.ID, err)
				}
				view = account.View()
			}

			return writeAccount(cmd.OutOrStdout(), format, accountOutput{Account: view, Token: &session.Token})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan to grant instead of the free tier")
	cmd.Flags().StringVar(&format, "format", "plain", "Output format: plain or json")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAccountShowCmd(a *app) *cobra.Command {
	var (
		id     string
		email  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an account's plan and credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := checkFormat(format)
			if err != nil {
				return err
			}

			d, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			var account *model.Account
			if id != "" {
				account, err = d.store.GetAccountByID(cmd.Context(), id)
			} else {
				account, err = d.store.GetAccountByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(email)))
			}
			if errors.Is(err, repository.ErrAccountNotFound) {
				return fmt.Errorf("account not found")
			}
			if err != nil {
				return fmt.Errorf("look up account: %w", err)
			}

			return writeAccount(cmd.OutOrStdout(), format, accountOutput{Account: account.View()})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Account ID")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&format, "format", "plain", "Output format: plain or json")
	cmd.MarkFlagsOneRequired("id", "email")
	cmd.MarkFlagsMutuallyExclusive("id", "email")

	return cmd
}

func writeAccount(w io.Writer, format string, out accountOutput) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	acct := out.Account
	_, _ = fmt.Fprintf(w, "id:      %s\n", acct.ID)
	_, _ = fmt.Fprintf(w, "name:    %s\n", acct.Name)
	_, _ = fmt.Fprintf(w, "email:   %s\n", acct.Email)
	_, _ = fmt.Fprintf(w, "plan:    %s\n", acct.Plan)
	_, _ = fmt.Fprintf(w, "credits: %d/%d\n", acct.CreditBalance, acct.CreditCeiling)
	if out.Token != nil {
		_, _ = fmt.Fprintf(w, "token:   %s\n", out.Token.Token)
	}
	return nil
}

// readSecret reads one line from r without its line ending.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("password is required: pass --password or pipe it on stdin")
	}
	return secret, nil
}
