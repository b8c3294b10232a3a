package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/model"
)

const (
	detailNoCredentials = "Authentication credentials were not provided."
	detailInvalidToken  = "Invalid token."
	detailForbidden     = "You do not have permission to perform this action."
)

// TokenLookup resolves an API key to its user. Unknown keys return nil.
type TokenLookup interface {
	UserForKey(key string) (*model.User, error)
}

// RequireToken authenticates "Authorization: Token <key>" and populates
// AuthContext. Failures answer 401 with a JSON detail.
func RequireToken(tokens TokenLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, detailNoCredentials)
				return
			}

			user, err := tokens.UserForKey(key)
			if err != nil {
				writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
				return
			}
			if user == nil {
				unauthorized(w, detailInvalidToken)
				return
			}

			ac := auth.AuthContext{
				UserID:   user.ID,
				Username: user.Username,
				IsStaff:  user.IsStaff,
				TokenKey: key,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireStaff lets only staff users through.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsStaff(r.Context()) {
			writeDetail(w, http.StatusForbidden, detailForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromHeader(h string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Token")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
