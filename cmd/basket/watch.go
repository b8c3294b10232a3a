package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/websocket"
)

// wsURL derives the notification endpoint from the API base URL.
func wsURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("api_url %q: unsupported scheme", apiURL)
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api") + "/ws"
	return u.String(), nil
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch LIST",
		Short: "Show a list and redraw it whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printList(out, l)

			endpoint, err := wsURL(a.cfg.APIURL)
			if err != nil {
				return err
			}
			token, err := a.creds.Token(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return websocket.Subscribe(ctx, endpoint, token, a.logger, func(msg websocket.Message) {
				if msg.ListID != l.ID && msg.Entity != websocket.EntityPrice {
					return
				}
				fresh, err := a.lists.Load(ctx, l.ID)
				if err != nil {
					a.logger.Warn("reload list", "list_id", l.ID, "error", err)
					return
				}
				l = fresh
				fmt.Fprintf(out, "\n-- %s --\n", msg.Type)
				printList(out, l)
			})
		},
	}
}
