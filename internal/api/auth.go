package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/basket/internal/model"
)

type authResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Login exchanges a username and password for a token and stores it.
func (c *Client) Login(ctx context.Context, username, password string) (model.User, error) {
	body := map[string]string{"username": username, "password": password}
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login/", "user", body, &out); err != nil {
		return model.User{}, err
	}
	if err := c.saveToken(ctx, out.Token); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// Register creates an account and stores the token it returns.
func (c *Client) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register/", "user", in, &out); err != nil {
		return model.User{}, err
	}
	if err := c.saveToken(ctx, out.Token); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// Logout revokes the token server-side and forgets it locally. The local copy
// is dropped even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout/", "user", nil, nil)
	if c.creds != nil {
		if derr := c.creds.Delete(ctx); derr != nil {
			return fmt.Errorf("delete credential: %w", derr)
		}
	}
	return err
}

func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodGet, "/auth/profile/", "user", nil, &out)
	return out, err
}

func (c *Client) saveToken(ctx context.Context, token string) error {
	if c.creds == nil {
		return nil
	}
	if err := c.creds.Save(ctx, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
