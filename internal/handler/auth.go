package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/store"
)

type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewAuthHandler(users *store.UserStore, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Name string `json:"name" validate:"required"`
	PIN  string `json:"pin"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Login exchanges a member name and PIN for a bearer token. Members without
// a PIN log in with an empty one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByName(strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil || !pinMatches(user, req.PIN) {
		h.logger.Warn("failed login", "name", req.Name)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid name or PIN"})
		return
	}

	token, expires, err := h.tokens.Issue(user.ID, user.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("login", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: user})
}

func pinMatches(u *model.User, pin string) bool {
	if !u.HasPIN() {
		return pin == ""
	}
	return auth.CheckPIN(u.PINHash, pin)
}
