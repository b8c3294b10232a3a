package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/api"
)

// password prefers the flag, then BASKET_PASSWORD.
func password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("BASKET_PASSWORD"); env != "" {
		return env, nil
	}
	return "", errors.New("password required: use --password or BASKET_PASSWORD")
}

func authCommands(a *app) []*cobra.Command {
	var loginPassword string
	login := &cobra.Command{
		Use:   "login USERNAME",
		Short: "Log in and store the API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(loginPassword)
			if err != nil {
				return err
			}
			u, err := a.client.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", u.Username)
			return nil
		},
	}
	login.Flags().StringVar(&loginPassword, "password", "", "account password")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the API token and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}

	var in api.RegisterInput
	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(in.Password)
			if err != nil {
				return err
			}
			in.Password = pw
			u, err := a.client.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", u.Username)
			return nil
		},
	}
	register.Flags().StringVar(&in.Username, "username", "", "username")
	register.Flags().StringVar(&in.Email, "email", "", "email address")
	register.Flags().StringVar(&in.Password, "password", "", "password")
	register.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	register.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	register.MarkFlagRequired("username")
	register.MarkFlagRequired("email")

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			staff := ""
			if u.IsStaff {
				staff = " (staff)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>%s, joined %s\n", u.Username, u.Email, staff, ago(u.CreatedAt))
			return nil
		},
	}

	return []*cobra.Command{login, logout, register, whoami}
}
