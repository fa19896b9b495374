package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/category"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/notify"
	"github.com/dukerupert/eixo/internal/store"
)

// HouseholdHandler serves the shared household records. Every creation is
// announced to the household group.
type HouseholdHandler struct {
	store    *store.HouseholdStore
	users    *store.UserStore
	notifier *notify.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

func NewHouseholdHandler(hs *store.HouseholdStore, users *store.UserStore, notifier *notify.Emitter, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{store: hs, users: users, notifier: notifier, logger: logger, now: time.Now}
}

// actor resolves the acting user, defaulting to the caller, and returns the
// id (nil when unknown) and a display name.
func (h *HouseholdHandler) actor(r *http.Request, id *int64) (*int64, string, error) {
	if id == nil {
		if caller := auth.UserID(r.Context()); caller != 0 {
			id = &caller
		}
	}
	if id == nil {
		return nil, notify.Someone, nil
	}
	u, err := h.users.GetByID(*id)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", apperr.Validation("user %d does not exist", *id)
	}
	return id, u.Name, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// --- Shopping ---

func (h *HouseholdHandler) ListShopping(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListShopping()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(items))
}

func (h *HouseholdHandler) AddShoppingItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required,max=100"`
		Quantity string `json:"quantity" validate:"max=20"`
		AddedBy  *int64 `json:"addedBy"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, apperr.Validation("name is required"))
		return
	}

	addedBy, who, err := h.actor(r, req.AddedBy)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.store.AddShoppingItem(req.Name, strings.TrimSpace(req.Quantity), addedBy)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notifier.EmitHousehold(notify.ShoppingItemAdded(item.Name, who, h.now()))
	writeJSON(w, http.StatusCreated, item)
}

// MarkBought sets the bought flag; the body may set {"bought": false} to undo.
func (h *HouseholdHandler) MarkBought(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	req := struct {
		Bought *bool `json:"bought"`
	}{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	bought := req.Bought == nil || *req.Bought

	item, err := h.store.SetBought(id, bought)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if item == nil {
		writeError(w, h.logger, apperr.NotFound("shopping item %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HouseholdHandler) DeleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	existing, err := h.store.GetShoppingItem(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing == nil {
		writeError(w, h.logger, apperr.NotFound("shopping item %d not found", id))
		return
	}
	if err := h.store.DeleteShoppingItem(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Notices ---

func (h *HouseholdHandler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.store.ListNotices()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(notices))
}

func (h *HouseholdHandler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string           `json:"text" validate:"required,max=500"`
		Kind     model.NoticeKind `json:"kind" validate:"omitempty,oneof=info alert status"`
		AuthorID *int64           `json:"authorId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, h.logger, apperr.Validation("text is required"))
		return
	}
	if req.Kind == "" {
		req.Kind = model.NoticeInfo
	}

	authorID, who, err := h.actor(r, req.AuthorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	notice, err := h.store.CreateNotice(req.Text, req.Kind, authorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notifier.EmitHousehold(notify.NoticePosted(notice.Text, who, h.now()))
	writeJSON(w, http.StatusCreated, notice)
}

func (h *HouseholdHandler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.store.DeleteNotice(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Expenses ---

func (h *HouseholdHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.store.ListExpenses()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(expenses))
}

// CreateExpense takes the amount in currency units and stores it in cents.
// Without an explicit category one is guessed from the title.
func (h *HouseholdHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string  `json:"title" validate:"required,max=100"`
		Amount   float64 `json:"amount" validate:"gt=0"`
		Category string  `json:"category" validate:"omitempty,oneof=housing food leisure transport other"`
		PaidBy   *int64  `json:"paidBy"`
		Date     string  `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, h.logger, apperr.Validation("title is required"))
		return
	}
	if req.Category == "" {
		req.Category = category.Categorize(req.Title)
	}

	spentOn := h.now()
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		spentOn = d
	}

	paidBy, who, err := h.actor(r, req.PaidBy)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	expense, err := h.store.CreateExpense(req.Title, toCents(req.Amount), req.Category, paidBy, spentOn)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notifier.EmitHousehold(notify.ExpenseAdded(expense.Title, expense.AmountCents, who, h.now()))
	writeJSON(w, http.StatusCreated, expense)
}

// --- Goals ---

func (h *HouseholdHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.store.ListGoals()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(goals))
}

func (h *HouseholdHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string  `json:"title" validate:"required,max=100"`
		Description  string  `json:"description" validate:"max=500"`
		TargetAmount float64 `json:"targetAmount" validate:"gt=0"`
		Unit         string  `json:"unit" validate:"max=10"`
		Deadline     string  `json:"deadline"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, h.logger, apperr.Validation("title is required"))
		return
	}

	var deadline *time.Time
	if req.Deadline != "" {
		d, err := parseDate(req.Deadline)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		deadline = &d
	}

	goal, err := h.store.CreateGoal(req.Title, req.Description, toCents(req.TargetAmount), req.Unit, deadline)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// Contribute adds an amount in currency units to a goal and announces the new
// progress.
func (h *HouseholdHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req struct {
		Amount float64 `json:"amount" validate:"gt=0"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	goal, err := h.store.Contribute(id, toCents(req.Amount))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if goal == nil {
		writeError(w, h.logger, apperr.NotFound("goal %d not found", id))
		return
	}
	h.notifier.EmitHousehold(notify.GoalProgress(goal.Title, goal.CurrentCents, goal.TargetCents, h.now()))
	writeJSON(w, http.StatusOK, goal)
}
