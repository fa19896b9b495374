package recurrence

import (
	"iter"
	"slices"
	"time"

	"github.com/dukerupert/eixo/internal/model"
)

// Occurrence is one projected future instance of a task.
type Occurrence struct {
	Index      int       `json:"index"`
	Date       time.Time `json:"date"`
	AssigneeID *int64    `json:"assigneeId"`
}

// Sequence returns a lazy sequence of at most n upcoming occurrences of task,
// starting on or after the calendar day of from. Dates are midnight in from's
// location. The sequence does not observe later changes to task and can be
// ranged over more than once with identical results.
func Sequence(task *model.RecurringTask, n int, from time.Time) (iter.Seq[Occurrence], error) {
	rule, err := RuleFor(task)
	if err != nil {
		return nil, err
	}

	var assignees []int64
	if task.Strategy == model.StrategyAuto {
		assignees = task.AssigneeIDs()
	}
	cursor := clamp(task.CurrentAssigneeIndex, len(assignees))
	start := midnight(from, from.Location())

	return func(yield func(Occurrence) bool) {
		limit := n
		if limit > 0 && rule.Freq == Once {
			limit = 1
		}
		for k := 0; k < limit; k++ {
			occ := Occurrence{Index: k, Date: rule.nth(start, k)}
			if len(assignees) > 0 {
				id := assignees[(cursor+k)%len(assignees)]
				occ.AssigneeID = &id
			}
			if !yield(occ) {
				return
			}
		}
	}, nil
}

// Project collects the first n occurrences of task from Sequence.
func Project(task *model.RecurringTask, n int, from time.Time) ([]Occurrence, error) {
	seq, err := Sequence(task, n, from)
	if err != nil {
		return nil, err
	}
	out := slices.Collect(seq)
	if out == nil {
		out = []Occurrence{}
	}
	return out, nil
}

// nth returns the k-th occurrence date on or after start, which must be a
// local midnight.
func (r Rule) nth(start time.Time, k int) time.Time {
	y, m, d := start.Date()
	loc := start.Location()

	switch r.Freq {
	case Daily:
		return time.Date(y, m, d+k, 0, 0, 0, 0, loc)

	case Weekly:
		offset := (int(r.ByDay) - int(start.Weekday()) + 7) % 7
		return time.Date(y, m, d+offset+7*k, 0, 0, 0, 0, loc)

	case Monthly:
		first := m
		if clampDay(y, m, r.ByMonthDay) < d {
			first++
		}
		return monthDay(y, first+time.Month(k), r.ByMonthDay, loc)

	case Once:
		oy, om, od := r.On.Date()
		return time.Date(oy, om, od, 0, 0, 0, 0, loc)
	}
	return time.Time{}
}

// monthDay returns day of the given month, clamped to the month's last day.
// month may overflow 12; time.Date normalizes it.
func monthDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	y, m, _ := firstOfMonth.Date()
	return time.Date(y, m, clampDay(y, m, day), 0, 0, 0, 0, loc)
}

func clampDay(year int, month time.Month, day int) int {
	last := daysIn(year, month)
	if day > last {
		return last
	}
	return day
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func clamp(index, n int) int {
	if n <= 0 {
		return 0
	}
	index %= n
	if index < 0 {
		index += n
	}
	return index
}
