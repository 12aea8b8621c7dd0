package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/bootstrap"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
	"github.com/inkwell/inkwell/internal/service"
)

// deps is what the subcommands operate on.
type deps struct {
	driver   string
	store    repository.Store
	plans    model.PlanCatalog
	accounts *service.AccountService
	logger   *slog.Logger
}

type wireFunc func(ctx context.Context) (*deps, error)

// app wires deps on first use so help and flag errors work without a
// configured environment.
type app struct {
	wire wireFunc
	deps *deps
}

func (a *app) load(ctx context.Context) (*deps, error) {
	if a.deps != nil {
		return a.deps, nil
	}
	d, err := a.wire(ctx)
	if err != nil {
		return nil, err
	}
	a.deps = d
	return d, nil
}

func (a *app) close(ctx context.Context) error {
	if a.deps == nil {
		return nil
	}
	err := a.deps.store.Close(ctx)
	a.deps = nil
	return err
}

func newRootCmd(wire wireFunc) *cobra.Command {
	a := &app{wire: wire}

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Inkwell administration: schema, accounts and access tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newAccountCmd(a),
		newTokenCmd(a),
	)

	return rootCmd
}

// wireDeps builds deps from the environment.
func wireDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := bootstrap.NewLogger(os.Stderr, cfg.LogLevel, "text")

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s store: %w", cfg.StoreDriver, err)
	}

	plans := cfg.Plans()
	return &deps{
		driver: cfg.StoreDriver,
		store:  store,
		plans:  plans,
		accounts: service.NewAccountService(store, plans, nil, service.AccountConfig{
			TokenTTL: cfg.TokenTTL,
			TokenEnv: cfg.TokenEnv,
		}, logger),
		logger: logger,
	}, nil
}

func parseScopes(input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return model.DefaultScopes, nil
	}
	parts := strings.Split(input, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !model.IsValidScope(scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		scopes = model.DefaultScopes
	}
	return scopes, nil
}

func checkFormat(format string) (string, error) {
	switch f := strings.ToLower(format); f {
	case "plain", "json":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q; use plain or json", format)
	}
}
