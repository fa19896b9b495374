package model

import "time"

type TaskKind string

const (
	KindRecurring TaskKind = "recurring"
	KindSporadic  TaskKind = "sporadic"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Strategy decides who is responsible for each occurrence.
type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyManual Strategy = "manual"
)

// RecurringTask is a shared chore definition. For recurring tasks the record
// always represents the next pending occurrence.
type RecurringTask struct {
	ID                   int64            `json:"id"`
	Title                string           `json:"title"`
	Category             string           `json:"category"`
	Kind                 TaskKind         `json:"kind"`
	Frequency            Frequency        `json:"frequency,omitempty"`
	DayOfWeek            *int             `json:"dayOfWeek,omitempty"`
	DayOfMonth           *int             `json:"dayOfMonth,omitempty"`
	ScheduledDate        *time.Time       `json:"scheduledDate,omitempty"`
	PointsOnTime         int              `json:"pointsOnTime"`
	PointsLatePerDay     int              `json:"pointsLatePerDay"`
	Strategy             Strategy         `json:"distributionStrategy"`
	Assignees            []TaskAssignment `json:"assignees"`
	CurrentAssigneeIndex int              `json:"currentAssigneeIndex"`
	IsDone               bool             `json:"isDone"`
	LastCompletedAt      *time.Time       `json:"lastCompletedAt,omitempty"`
	LastCompletedBy      *int64           `json:"lastCompletedByUserId,omitempty"`
	Version              int64            `json:"version"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// AssigneeIDs returns the user ids in rotation order.
func (t *RecurringTask) AssigneeIDs() []int64 {
	ids := make([]int64, len(t.Assignees))
	for i, a := range t.Assignees {
		ids[i] = a.UserID
	}
	return ids
}

type TaskAssignment struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Position int    `json:"position"`
}

// TaskCompletion is an immutable audit record of one completion.
type TaskCompletion struct {
	ID           int64     `json:"id"`
	TaskID       int64     `json:"taskId"`
	UserID       int64     `json:"userId"`
	CompletedAt  time.Time `json:"completedAt"`
	PointsEarned int       `json:"pointsEarned"`
	WasLate      bool      `json:"wasLate"`
	DaysLate     int       `json:"daysLate"`
}
