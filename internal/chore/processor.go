package chore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/gamification"
	"github.com/dukerupert/eixo/internal/keylock"
	"github.com/dukerupert/eixo/internal/metrics"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/notify"
	"github.com/dukerupert/eixo/internal/store"
)

// MaxDaysLate bounds the lateness a completion may report.
const MaxDaysLate = 3650

// Request describes one completion. DaysLate only counts when WasLate is set;
// on-time completions ignore it, whatever its value.
type Request struct {
	TaskID   int64
	UserID   int64
	WasLate  bool
	DaysLate int
	// Version, when set, must match the task's stored version.
	Version *int64
}

type Result struct {
	PointsEarned   int                   `json:"pointsEarned"`
	LeveledUp      bool                  `json:"leveledUp"`
	NextAssigneeID *int64                `json:"nextAssigneeId,omitempty"`
	Task           *model.RecurringTask  `json:"task"`
	User           *model.User           `json:"user"`
	Completion     *model.TaskCompletion `json:"completion"`
}

// Processor records task completions. A completion, the task's new state and
// the user's credit are written in one transaction.
type Processor struct {
	db       *sql.DB
	tasks    *store.TaskStore
	users    *store.UserStore
	ledger   *gamification.Ledger
	notifier *notify.Emitter
	locks    *keylock.Map
	logger   *slog.Logger
	now      func() time.Time

	// beforeCommit runs after every write, just before commit.
	beforeCommit func() error
}

func NewProcessor(db *sql.DB, ledger *gamification.Ledger, notifier *notify.Emitter, logger *slog.Logger) *Processor {
	return &Processor{
		db:       db,
		tasks:    store.NewTaskStore(db),
		users:    store.NewUserStore(db),
		ledger:   ledger,
		notifier: notifier,
		locks:    keylock.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Complete marks the pending occurrence of a task as done by a user.
func (p *Processor) Complete(ctx context.Context, req Request) (Result, error) {
	res, delta, err := p.complete(ctx, req)
	if err != nil {
		metrics.CompletionFailures.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return Result{}, err
	}

	metrics.CompletionsTotal.WithLabelValues(string(res.Task.Kind), strconv.FormatBool(req.WasLate)).Inc()
	metrics.PointsAwarded.Add(float64(res.PointsEarned))
	p.logger.Info("task completed",
		"task_id", res.Task.ID,
		"user_id", res.User.ID,
		"points", res.PointsEarned,
		"was_late", res.Completion.WasLate,
		"next_index", res.Task.CurrentAssigneeIndex,
	)

	now := res.Completion.CompletedAt
	p.notifier.EmitHousehold(notify.TaskCompleted(res.Task.ID, res.Task.Title, res.User.Name, res.PointsEarned, now))
	if delta.LeveledUp() {
		level := gamification.LevelFor(res.User.XP)
		p.notifier.EmitUser(res.User.ID, notify.Direct(
			"Level up!",
			fmt.Sprintf("You reached level %d: %s", level.Number, level.Title),
			"level",
			now,
		))
	}
	return res, nil
}

func (p *Processor) complete(ctx context.Context, req Request) (Result, gamification.Delta, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, gamification.Delta{}, err
	}
	if req.WasLate && (req.DaysLate < 0 || req.DaysLate > MaxDaysLate) {
		return Result{}, gamification.Delta{}, apperr.Validation("daysLate must be between 0 and %d", MaxDaysLate)
	}

	unlockTask := p.locks.Lock(req.TaskID)
	defer unlockTask()

	task, err := p.tasks.GetByID(req.TaskID)
	if err != nil {
		return Result{}, gamification.Delta{}, err
	}
	if task == nil {
		return Result{}, gamification.Delta{}, apperr.NotFound("task %d not found", req.TaskID)
	}
	user, err := p.users.GetByID(req.UserID)
	if err != nil {
		return Result{}, gamification.Delta{}, err
	}
	if user == nil {
		return Result{}, gamification.Delta{}, apperr.Validation("user %d does not exist", req.UserID)
	}
	if task.Kind == model.KindSporadic && task.IsDone {
		return Result{}, gamification.Delta{}, apperr.Conflict("task %q is already done", task.Title)
	}
	if req.Version != nil && *req.Version != task.Version {
		return Result{}, gamification.Delta{}, apperr.Conflict("task %d changed (version %d, have %d)", task.ID, task.Version, *req.Version)
	}

	daysLate := req.DaysLate
	if !req.WasLate {
		daysLate = 0
	}
	points := PointsEarned(task.PointsOnTime, task.PointsLatePerDay, req.WasLate, daysLate)
	now := p.now()

	unlockUser := p.ledger.Lock(user.ID)
	defer unlockUser()

	res := Result{PointsEarned: points, Task: task}
	var delta gamification.Delta
	err = store.InTx(p.db, func(tx *sql.Tx) error {
		tasks := p.tasks.WithTx(tx)

		completion, err := tasks.CreateCompletion(model.TaskCompletion{
			TaskID:       task.ID,
			UserID:       user.ID,
			CompletedAt:  now,
			PointsEarned: points,
			WasLate:      req.WasLate,
			DaysLate:     daysLate,
		})
		if err != nil {
			return err
		}
		res.Completion = completion

		task.IsDone = true
		task.LastCompletedAt = &now
		task.LastCompletedBy = &user.ID
		Advance(task)
		if task.Kind == model.KindRecurring {
			task.IsDone = false
		}
		if err := tasks.SaveState(task); err != nil {
			if errors.Is(err, store.ErrStale) {
				return apperr.Conflict("task %d was modified concurrently", task.ID)
			}
			return err
		}

		res.User, delta, err = p.ledger.CreditCompletion(tx, user.ID, points, req.WasLate)
		if err != nil {
			return err
		}

		if p.beforeCommit != nil {
			return p.beforeCommit()
		}
		return nil
	})
	if err != nil {
		return Result{}, gamification.Delta{}, err
	}

	res.LeveledUp = delta.LeveledUp()
	res.NextAssigneeID = Current(task)
	return res, delta, nil
}
