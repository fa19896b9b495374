package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/gamification"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/store"
)

const defaultColor = "#3B82F6"

type UserHandler struct {
	users  *store.UserStore
	tasks  *store.TaskStore
	ledger *gamification.Ledger
	logger *slog.Logger
}

func NewUserHandler(users *store.UserStore, tasks *store.TaskStore, ledger *gamification.Ledger, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, tasks: tasks, ledger: ledger, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(users))
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Initials string `json:"initials" validate:"max=3"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
	PIN      string `json:"pin" validate:"omitempty,len=4,numeric"`
}

// Create adds a household member. Anyone may create the first member; after
// that the caller must be authenticated.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); !ok {
		existing, err := h.users.List()
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if len(existing) > 0 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
	}

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, apperr.Validation("name is required"))
		return
	}

	dup, err := h.users.GetByName(req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if dup != nil {
		writeError(w, h.logger, apperr.Conflict("a member named %q already exists", dup.Name))
		return
	}

	if req.Initials == "" {
		req.Initials = initialsOf(req.Name)
	}
	if req.Color == "" {
		req.Color = defaultColor
	}
	var pinHash string
	if req.PIN != "" {
		if pinHash, err = auth.HashPIN(req.PIN); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	user, err := h.users.Create(req.Name, strings.ToUpper(req.Initials), req.Color, pinHash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("user created", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type levelResponse struct {
	UserID int64 `json:"userId"`
	gamification.LevelProgress
}

// Level reports the user's level and the XP remaining to the next one.
func (h *UserHandler) Level(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, levelResponse{UserID: user.ID, LevelProgress: gamification.Progress(user.XP)})
}

func (h *UserHandler) Completions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	completions, err := h.tasks.ListCompletionsByUser(user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(completions))
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.ledger.Leaderboard()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(users))
}

// SetPIN replaces the caller's own PIN. An empty PIN clears it.
func (h *UserHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if auth.UserID(r.Context()) != id {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot change another member's PIN"})
		return
	}

	var req struct {
		PIN string `json:"pin" validate:"omitempty,len=4,numeric"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var hash string
	if req.PIN != "" {
		if hash, err = auth.HashPIN(req.PIN); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	if err := h.users.SetPIN(id, hash); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a member. Their assignments and history go with them;
// rotation cursors on affected tasks are clamped on next use.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(user.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("user deleted", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	if user == nil {
		writeError(w, h.logger, apperr.NotFound("user %d not found", id))
		return nil, false
	}
	return user, true
}

// initialsOf takes the first letter of up to two words.
func initialsOf(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, c := range word {
			if unicode.IsLetter(c) || unicode.IsDigit(c) {
				out = append(out, unicode.ToUpper(c))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
