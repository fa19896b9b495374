package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/gamification"
	"github.com/dukerupert/eixo/internal/store"
)

type RewardHandler struct {
	rewards *store.RewardStore
	ledger  *gamification.Ledger
	logger  *slog.Logger
}

func NewRewardHandler(rewards *store.RewardStore, ledger *gamification.Ledger, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, ledger: ledger, logger: logger}
}

type rewardRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Cost        int    `json:"cost" validate:"gte=0"`
	Icon        string `json:"icon" validate:"max=16"`
	Description string `json:"description" validate:"max=500"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, h.logger, apperr.Validation("title is required"))
		return
	}

	reward, err := h.rewards.Create(req.Title, req.Cost, req.Icon, req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

// List returns the rewards that can still be redeemed, cheapest first.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.ListActive()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(rewards))
}

// Delete deactivates a reward. Past redemptions keep referring to it.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing == nil {
		writeError(w, h.logger, apperr.NotFound("reward %d not found", id))
		return
	}

	if err := h.rewards.Deactivate(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redeem spends the user's points on the reward. The user defaults to the
// caller.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req struct {
		UserID int64 `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.UserID == 0 {
		req.UserID = auth.UserID(r.Context())
	}

	res, err := h.ledger.DebitRedemption(r.Context(), req.UserID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *RewardHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "userId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	redemptions, err := h.rewards.ListRedemptionsByUser(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(redemptions))
}
