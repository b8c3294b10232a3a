package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/seed"
	"github.com/dukerupert/basket/internal/store"
)

func newSeedCmd(load configLoader) *cobra.Command {
	var fixture string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load stores, products and prices from a JSON fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}

			f, err := os.Open(fixture)
			if err != nil {
				return err
			}
			defer f.Close()
			fx, err := seed.Decode(f)
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			res, err := seed.Load(store.NewCatalogStore(db), fx, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d stores, %d products created; %d prices recorded\n",
				res.StoresCreated, res.ProductsCreated, res.PricesRecorded)
			return nil
		},
	}
	cmd.Flags().StringVar(&fixture, "fixture", "", "path to the JSON fixture")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

func newCreateSuperuserCmd(load configLoader) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a staff account, or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv("BASKET_SUPERUSER_PASSWORD")
			}

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			users := store.NewUserStore(db)

			existing, err := users.GetByUsername(username)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := users.SetStaff(existing.ID, true); err != nil {
					return err
				}
				logger.Info("user promoted to staff", "user_id", existing.ID, "username", username)
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now staff\n", username)
				return nil
			}

			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters (use --password or BASKET_SUPERUSER_PASSWORD)")
			}
			u, err := users.Create(store.NewUser{
				Username: username,
				Email:    email,
				Password: password,
				IsStaff:  true,
			})
			if err != nil {
				return err
			}
			logger.Info("superuser created", "user_id", u.ID, "username", u.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "created staff user %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("username")
	return cmd
}
