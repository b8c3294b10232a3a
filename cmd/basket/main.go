// Command basket is a terminal client for the shopping list API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/api"
	"github.com/dukerupert/basket/internal/config"
	"github.com/dukerupert/basket/internal/credential"
	"github.com/dukerupert/basket/internal/logging"
	"github.com/dukerupert/basket/internal/reconcile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg    config.Client
	logger *slog.Logger
	creds  *credential.SQLite
	client *api.Client
	lists  *reconcile.Reconciler
}

func (a *app) open(ctx context.Context, configFile string) error {
	cfg, err := config.LoadClient(configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Setup(cfg.LogLevel)

	if cfg.Passphrase == "" {
		return errors.New("no passphrase configured: set BASKET_PASSPHRASE or passphrase in basket.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CredentialsPath), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	creds, err := credential.OpenSQLite(ctx, cfg.CredentialsPath, cfg.Passphrase)
	if err != nil {
		return err
	}
	a.creds = creds
	a.client = api.NewClient(cfg.APIURL, creds,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(a.logger.With("component", "api")),
	)
	a.lists = reconcile.New(a.client, a.logger)
	return nil
}

func (a *app) close() {
	if a.creds != nil {
		a.creds.Close()
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	a := &app{}

	root := &cobra.Command{
		Use:           "basket",
		Short:         "Manage shopping lists and compare store prices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), configFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./basket.yaml)")

	root.AddCommand(authCommands(a)...)
	root.AddCommand(listCommands(a)...)
	root.AddCommand(itemCommands(a)...)
	root.AddCommand(catalogCommands(a)...)
	root.AddCommand(receiptCommands(a)...)
	root.AddCommand(newWatchCmd(a))
	return root
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

// describeError turns API errors into something a person can act on.
func describeError(err error) string {
	var ve *api.ValidationError
	if errors.As(err, &ve) {
		return "invalid input:\n" + formatFieldErrors(ve.Fields)
	}
	switch api.KindOf(err) {
	case api.KindAuth:
		var ae *api.AuthError
		if errors.As(err, &ae) && ae.Forbidden {
			return "error: " + err.Error() + " (staff account required)"
		}
		return "error: " + err.Error() + " (run `basket login`)"
	case api.KindNetwork:
		return "error: " + err.Error() + " (is the server reachable?)"
	}
	return "error: " + err.Error()
}
