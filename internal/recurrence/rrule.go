package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/model"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	// Once is a single, non-repeating occurrence.
	Once
)

var freqNames = map[Freq]string{
	Daily:   "DAILY",
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
}

var freqFromModel = map[model.Frequency]Freq{
	model.FrequencyDaily:   Daily,
	model.FrequencyWeekly:  Weekly,
	model.FrequencyMonthly: Monthly,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is the validated recurrence definition of a task.
type Rule struct {
	Freq       Freq
	ByDay      time.Weekday // Weekly only
	ByMonthDay int          // Monthly only; days past the month's end fire on its last day
	On         time.Time    // Once only
}

// RuleFor validates the recurrence fields of a task and returns its rule.
func RuleFor(task *model.RecurringTask) (Rule, error) {
	switch task.Kind {
	case model.KindSporadic:
		if task.ScheduledDate == nil {
			return Rule{}, apperr.Validation("sporadic task requires scheduledDate")
		}
		return Rule{Freq: Once, On: *task.ScheduledDate}, nil

	case model.KindRecurring:
		freq, ok := freqFromModel[task.Frequency]
		if !ok {
			return Rule{}, apperr.Validation("unknown frequency: %q", task.Frequency)
		}
		r := Rule{Freq: freq}
		switch freq {
		case Weekly:
			if task.DayOfWeek == nil {
				return Rule{}, apperr.Validation("weekly task requires dayOfWeek")
			}
			if *task.DayOfWeek < 0 || *task.DayOfWeek > 6 {
				return Rule{}, apperr.Validation("dayOfWeek must be between 0 and 6, got %d", *task.DayOfWeek)
			}
			r.ByDay = time.Weekday(*task.DayOfWeek)
		case Monthly:
			if task.DayOfMonth == nil {
				return Rule{}, apperr.Validation("monthly task requires dayOfMonth")
			}
			if *task.DayOfMonth < 1 || *task.DayOfMonth > 31 {
				return Rule{}, apperr.Validation("dayOfMonth must be between 1 and 31, got %d", *task.DayOfMonth)
			}
			r.ByMonthDay = *task.DayOfMonth
		}
		return r, nil

	default:
		return Rule{}, apperr.Validation("unknown task kind: %q", task.Kind)
	}
}

// String serializes the rule to an RRULE string. A one-off rule has no RRULE
// and renders as the empty string.
func (r Rule) String() string {
	if r.Freq == Once {
		return ""
	}

	parts := []string{"FREQ=" + freqNames[r.Freq]}
	switch r.Freq {
	case Weekly:
		parts = append(parts, "BYDAY="+dayAbbrev[r.ByDay])
	case Monthly:
		if r.ByMonthDay > 28 {
			// BYMONTHDAY alone would skip short months; pick the last valid day instead.
			parts = append(parts, fmt.Sprintf("BYMONTHDAY=%s", monthDaySet(r.ByMonthDay)), "BYSETPOS=-1")
		} else {
			parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", r.ByMonthDay))
		}
	}
	return strings.Join(parts, ";")
}

func monthDaySet(day int) string {
	var days []string
	for d := 28; d <= day; d++ {
		days = append(days, fmt.Sprint(d))
	}
	return strings.Join(days, ",")
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Freq {
	case Daily:
		return "Repeats daily"
	case Weekly:
		return "Repeats weekly on " + r.ByDay.String()[:3]
	case Monthly:
		if r.ByMonthDay > 28 {
			return fmt.Sprintf("Repeats monthly on day %d (or the last day of shorter months)", r.ByMonthDay)
		}
		return fmt.Sprintf("Repeats monthly on day %d", r.ByMonthDay)
	case Once:
		return "Once on " + r.On.Format("Mon, Jan 2 2006")
	}
	return ""
}
