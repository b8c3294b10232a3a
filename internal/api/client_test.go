package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/credential"
	"github.com/dukerupert/basket/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *credential.Memory) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	creds := credential.NewMemory("tok-123")
	return NewClient(srv.URL+"/api", creds), creds
}

func TestGetListDecodesAndAuthenticates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shopping-lists/7/", r.URL.Path)
		assert.Equal(t, "Token tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 7, "name": "Weekly", "status": "active", "notes": "",
			"estimated_total": "12.50",
			"items": [{"id": 1, "shopping_list": 7, "product": null, "product_name": "Rice",
			           "quantity": "2.00", "unit": "kg", "estimated_price": "6.25",
			           "notes": "", "is_checked": true, "position": 0}],
			"items_count": 1, "checked_items_count": 1, "progress_percentage": 100
		}`))
	})

	list, err := c.GetList(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "Weekly", list.Name)
	assert.Equal(t, model.ListStatusActive, list.Status)
	assert.Equal(t, "12.5", list.EstimatedTotal.String())
	require.Len(t, list.Items, 1)
	assert.Nil(t, list.Items[0].ProductID)
	lt, ok := list.Items[0].LineTotal()
	require.True(t, ok)
	assert.Equal(t, "12.5", lt.String())
}

func TestAnonymousRequestHasNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, credential.NewMemory(""))
	_, err := c.Stores(context.Background())
	require.NoError(t, err)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"validation", http.StatusBadRequest, `{"product_name": ["This field is required."]}`, KindValidation},
		{"not found", http.StatusNotFound, `{"detail": "Not found."}`, KindNotFound},
		{"unauthorized", http.StatusUnauthorized, `{"detail": "Invalid token."}`, KindAuth},
		{"forbidden", http.StatusForbidden, `{"detail": "Staff only."}`, KindAuth},
		{"server error", http.StatusInternalServerError, `oops`, KindNetwork},
		{"bad gateway", http.StatusBadGateway, ``, KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.GetList(context.Background(), 1)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestValidationErrorFields(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"quantity": ["Ensure this value is greater than 0."], "product_name": "Required."}`))
	})

	_, err := c.AddItem(context.Background(), 1, model.ItemInput{ProductName: "x"})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Ensure this value is greater than 0."}, ve.Fields["quantity"])
	assert.Equal(t, []string{"Required."}, ve.Fields["product_name"])
	assert.Contains(t, ve.Error(), "product_name: Required.")
}

func TestUnauthorizedInvalidatesCredential(t *testing.T) {
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Invalid token."}`))
	})

	_, err := c.GetList(context.Background(), 1)
	require.Error(t, err)

	_, tokErr := creds.Token(context.Background())
	assert.ErrorIs(t, tokErr, credential.ErrNoToken)
}

func TestForbiddenKeepsCredential(t *testing.T) {
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.GetList(context.Background(), 1)
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.True(t, ae.Forbidden)

	tok, tokErr := creds.Token(context.Background())
	require.NoError(t, tokErr)
	assert.Equal(t, "tok-123", tok)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)

	_, err := c.GetList(context.Background(), 1)

	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 0, ne.Status)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestUndecodableBodyIsNetworkError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.GetList(context.Background(), 1)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestKindOfNonAPIError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "not_found", KindNotFound.String())
}

func TestToggleAndClearChecked(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/shopping-lists/3/items/9/toggle/":
			assert.Equal(t, http.MethodPost, r.Method)
			json.NewEncoder(w).Encode(map[string]any{"id": 9, "shopping_list": 3, "product_name": "Milk", "quantity": "1", "is_checked": true})
		case "/api/shopping-lists/3/items/clear-checked/":
			json.NewEncoder(w).Encode(map[string]any{"message": "2 items removed successfully", "deleted_count": 2})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	item, err := c.ToggleItem(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.True(t, item.IsChecked)

	n, err := c.ClearChecked(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdateItemSendsOnlyPatchedFields(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"notes": "ripe ones"}, body)
		w.Write([]byte(`{"id": 4, "notes": "ripe ones", "product_name": "Bananas", "quantity": "6"}`))
	})

	notes := "ripe ones"
	item, err := c.UpdateItem(context.Background(), 1, 4, model.ItemPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "ripe ones", item.Notes)
}

func TestUpdateItemSendsNullToUnlink(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"product": nil, "estimated_price": nil}, body)
		w.Write([]byte(`{"id": 4, "product": null, "product_name": "Bananas", "quantity": "6", "estimated_price": null}`))
	})

	item, err := c.UpdateItem(context.Background(), 1, 4, model.ItemPatch{ClearProduct: true, ClearEstimatedPrice: true})
	require.NoError(t, err)
	assert.Nil(t, item.ProductID)
	assert.Nil(t, item.EstimatedPrice)
}

func TestLoginStoresTokenAndLogoutForgetsIt(t *testing.T) {
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			json.NewEncoder(w).Encode(map[string]any{
				"user":  map[string]any{"id": 1, "username": "sam"},
				"token": "fresh-token",
			})
		case "/api/auth/logout/":
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	ctx := context.Background()

	user, err := c.Login(ctx, "sam", "pw")
	require.NoError(t, err)
	assert.Equal(t, "sam", user.Username)
	tok, _ := creds.Token(ctx)
	assert.Equal(t, "fresh-token", tok)

	err = c.Logout(ctx)
	assert.Equal(t, KindNetwork, KindOf(err))
	_, tokErr := creds.Token(ctx)
	assert.ErrorIs(t, tokErr, credential.ErrNoToken)
}

func TestListListsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write([]byte(`{"count": 21, "next": null, "previous": "x", "results": [{"id": 1, "name": "Old", "status": "completed"}]}`))
	})

	page, err := c.ListLists(context.Background(), model.ListStatusCompleted, 2)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Old", page.Results[0].Name)
}

func TestParseValidationShapes(t *testing.T) {
	ve := parseValidation([]byte(`{"message": "Validation error", "errors": {"name": ["too long"]}}`))
	assert.Equal(t, "Validation error", ve.Message)
	assert.Equal(t, []string{"too long"}, ve.Fields["name"])

	ve = parseValidation([]byte(`["Either product or product_name must be provided."]`))
	assert.Equal(t, []string{"Either product or product_name must be provided."}, ve.Fields["non_field_errors"])

	ve = parseValidation([]byte(`{"items": [{"quantity": ["bad"]}]}`))
	assert.Len(t, ve.Fields["items"], 1)
}
