package chore

import "github.com/dukerupert/eixo/internal/model"

// Clamp maps index into [0, n). It returns 0 when n is 0.
func Clamp(index, n int) int {
	if n <= 0 {
		return 0
	}
	index %= n
	if index < 0 {
		index += n
	}
	return index
}

// Advance moves the rotation cursor of an auto-distributed task to the next
// assignee and returns the new index. Manual tasks and tasks without assignees
// are left unchanged.
func Advance(task *model.RecurringTask) int {
	n := len(task.Assignees)
	if task.Strategy != model.StrategyAuto || n == 0 {
		return task.CurrentAssigneeIndex
	}
	task.CurrentAssigneeIndex = (Clamp(task.CurrentAssigneeIndex, n) + 1) % n
	return task.CurrentAssigneeIndex
}

// Current returns the user responsible for the next occurrence, or nil when
// the task is not auto-distributed.
func Current(task *model.RecurringTask) *int64 {
	n := len(task.Assignees)
	if task.Strategy != model.StrategyAuto || n == 0 {
		return nil
	}
	id := task.Assignees[Clamp(task.CurrentAssigneeIndex, n)].UserID
	return &id
}
