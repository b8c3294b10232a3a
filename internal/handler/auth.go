package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

const minPasswordLength = 8

type AuthHandler struct {
	userStore  *store.UserStore
	tokenStore *store.TokenStore
	logger     *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ts *store.TokenStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, tokenStore: ts, logger: logger}
}

type authResponse struct {
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	errs := fieldErrors{}
	if strings.TrimSpace(req.Username) == "" {
		errs.add("username", msgRequired)
	}
	if req.Password == "" {
		errs.add("password", msgRequired)
	}
	if errs.respond(w) {
		return
	}

	user, err := h.userStore.Authenticate(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	tok, err := h.tokenStore.GetOrCreate(user.ID)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: tok.Key, User: user, Message: "Login successful"})
}

type registerRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Password2 *string `json:"password2"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	errs := fieldErrors{}
	if req.Username == "" {
		errs.add("username", msgRequired)
	}
	if req.Email == "" {
		errs.add("email", msgRequired)
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		errs.add("email", "Enter a valid email address.")
	}
	switch {
	case req.Password == "":
		errs.add("password", msgRequired)
	case len(req.Password) < minPasswordLength:
		errs.add("password", "This password is too short. It must contain at least 8 characters.")
	case req.Password2 != nil && *req.Password2 != req.Password:
		errs.add("password", "Password fields didn't match.")
	}

	if req.Username != "" {
		existing, err := h.userStore.GetByUsername(req.Username)
		if err != nil {
			h.logger.Error("check username", "error", err)
			writeDetail(w, http.StatusInternalServerError, msgServerError)
			return
		}
		if existing != nil {
			errs.add("username", "A user with that username already exists.")
		}
	}
	if errs.respond(w) {
		return
	}

	user, err := h.userStore.Create(store.NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	tok, err := h.tokenStore.GetOrCreate(user.ID)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, authResponse{Token: tok.Key, User: user, Message: "User registered successfully"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.tokenStore.Delete(auth.TokenKey(r.Context())); err != nil {
		h.logger.Error("delete token", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("load profile", "error", err)
		writeDetail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if user == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
