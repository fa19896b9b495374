package gamification

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/keylock"
	"github.com/dukerupert/eixo/internal/metrics"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/notify"
	"github.com/dukerupert/eixo/internal/store"
)

// Ledger owns every change to a user's points. Callers serialize per user
// through Lock; debits take the lock themselves.
type Ledger struct {
	db       *sql.DB
	users    *store.UserStore
	rewards  *store.RewardStore
	locks    *keylock.Map
	notifier *notify.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

func NewLedger(db *sql.DB, notifier *notify.Emitter, logger *slog.Logger) *Ledger {
	return &Ledger{
		db:       db,
		users:    store.NewUserStore(db),
		rewards:  store.NewRewardStore(db),
		locks:    keylock.New(),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Lock serializes ledger changes for one user.
func (l *Ledger) Lock(userID int64) (unlock func()) {
	return l.locks.Lock(userID)
}

// CreditCompletion applies a completion to the user inside tx. The caller
// must hold Lock(userID).
func (l *Ledger) CreditCompletion(tx *sql.Tx, userID int64, points int, wasLate bool) (*model.User, Delta, error) {
	users := l.users.WithTx(tx)
	u, err := users.GetByID(userID)
	if err != nil {
		return nil, Delta{}, err
	}
	if u == nil {
		return nil, Delta{}, apperr.NotFound("user %d not found", userID)
	}

	delta := ApplyCompletion(u, points, wasLate)
	if err := users.SaveProgress(u); err != nil {
		return nil, Delta{}, err
	}
	return u, delta, nil
}

type RedemptionResult struct {
	User       *model.User             `json:"user"`
	Reward     *model.Reward           `json:"reward"`
	Redemption *model.RewardRedemption `json:"redemption"`
}

// DebitRedemption spends a user's points on a reward. Nothing changes when the
// balance is short.
func (l *Ledger) DebitRedemption(ctx context.Context, userID, rewardID int64) (RedemptionResult, error) {
	unlock := l.Lock(userID)
	defer unlock()

	var res RedemptionResult
	err := store.InTx(l.db, func(tx *sql.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rewards := l.rewards.WithTx(tx)
		users := l.users.WithTx(tx)

		reward, err := rewards.GetByID(rewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return apperr.NotFound("reward %d not found", rewardID)
		}
		if !reward.Active {
			return apperr.Validation("reward %q is no longer available", reward.Title)
		}

		u, err := users.GetByID(userID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user %d not found", userID)
		}
		if u.Points < reward.Cost {
			return apperr.InsufficientFunds("insufficient points: have %d, need %d", u.Points, reward.Cost)
		}

		u.Points -= reward.Cost
		if err := users.SaveProgress(u); err != nil {
			return err
		}
		redemption, err := rewards.CreateRedemption(reward.ID, u.ID, reward.Cost, l.now())
		if err != nil {
			return err
		}

		res = RedemptionResult{User: u, Reward: reward, Redemption: redemption}
		return nil
	})
	if err != nil {
		status := "rejected"
		if apperr.KindOf(err) == apperr.KindInsufficientFunds {
			status = "insufficient_funds"
		}
		metrics.Redemptions.WithLabelValues(status).Inc()
		return RedemptionResult{}, err
	}

	metrics.Redemptions.WithLabelValues("success").Inc()
	metrics.PointsSpent.Add(float64(res.Reward.Cost))
	l.logger.Info("reward redeemed", "user_id", userID, "reward_id", rewardID, "cost", res.Reward.Cost, "balance", res.User.Points)
	l.notifier.EmitHousehold(notify.RewardRedeemed(res.User.Name, res.Reward.Title, l.now()))
	return res, nil
}

func (l *Ledger) Leaderboard() ([]model.User, error) {
	users, err := l.users.Leaderboard()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return users, nil
}
