package chore

import (
	"log/slog"
	"math"
	"time"

	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/recurrence"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusNotDue    Status = "not_due"
)

// TaskWithStatus is a task decorated with its derived schedule state.
type TaskWithStatus struct {
	model.RecurringTask
	Status     Status     `json:"status"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	NextDue    *time.Time `json:"nextDue,omitempty"`
	AssigneeID *int64     `json:"currentAssigneeId,omitempty"`
	Schedule   string     `json:"schedule"`
	RRule      string     `json:"rrule,omitempty"`
}

// WithStatus derives the status, due dates, and schedule description of task
// as seen on today.
func WithStatus(task model.RecurringTask, today time.Time) TaskWithStatus {
	tw := TaskWithStatus{RecurringTask: task, AssigneeID: Current(&task)}
	if rule, err := recurrence.RuleFor(&task); err == nil {
		tw.Schedule = rule.Describe()
		tw.RRule = rule.String()
	}
	tw.Status, tw.DueDate = ComputeStatus(task, today)
	tw.NextDue = NextDue(task, today)
	return tw
}

// ComputeStatus determines the status and current due date of a task.
func ComputeStatus(task model.RecurringTask, today time.Time) (Status, *time.Time) {
	today = startOfDay(today)

	if task.Kind == model.KindSporadic {
		if task.ScheduledDate == nil {
			return StatusPending, nil
		}
		y, m, d := task.ScheduledDate.Date()
		due := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
		switch {
		case task.IsDone:
			return StatusCompleted, &due
		case due.Before(today):
			return StatusOverdue, &due
		case due.Equal(today):
			return StatusPending, &due
		default:
			return StatusNotDue, &due
		}
	}

	// The most recent occurrence on or before today is the one that counts.
	// Monthly rules repeat at most 31 days apart.
	windowStart := today.AddDate(0, 0, -31)
	if created := startOfDayIn(task.CreatedAt, today.Location()); !task.CreatedAt.IsZero() && created.After(windowStart) {
		windowStart = created
	}
	seq, err := recurrence.Sequence(&task, 64, windowStart)
	if err != nil {
		slog.Error("invalid recurrence", "task_id", task.ID, "error", err)
		return StatusPending, nil
	}

	var currentDue *time.Time
	for occ := range seq {
		if occ.Date.After(today) {
			break
		}
		d := occ.Date
		currentDue = &d
	}

	if currentDue == nil {
		return StatusNotDue, nil
	}
	if task.LastCompletedAt != nil && !startOfDayIn(*task.LastCompletedAt, today.Location()).Before(*currentDue) {
		return StatusCompleted, currentDue
	}
	if currentDue.Before(today) {
		return StatusOverdue, currentDue
	}
	return StatusPending, currentDue
}

// NextDue returns the first occurrence after today, or the scheduled date of
// an open sporadic task. It returns nil for completed sporadic tasks.
func NextDue(task model.RecurringTask, today time.Time) *time.Time {
	if task.Kind == model.KindSporadic && task.IsDone {
		return nil
	}
	from := startOfDay(today)
	if task.Kind == model.KindRecurring {
		from = from.AddDate(0, 0, 1)
	}
	seq, err := recurrence.Sequence(&task, 1, from)
	if err != nil {
		return nil
	}
	for occ := range seq {
		d := occ.Date
		return &d
	}
	return nil
}

// DaysLate counts whole calendar days between due and completedAt.
func DaysLate(due, completedAt time.Time) int {
	d := int(math.Round(startOfDayIn(completedAt, due.Location()).Sub(startOfDay(due)).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfDayIn(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t.In(loc))
}
