package chore

import (
	"math"
	"testing"

	"github.com/dukerupert/eixo/internal/model"
)

func autoTask(ids ...int64) *model.RecurringTask {
	task := &model.RecurringTask{Kind: model.KindRecurring, Strategy: model.StrategyAuto}
	for i, id := range ids {
		task.Assignees = append(task.Assignees, model.TaskAssignment{UserID: id, Position: i})
	}
	return task
}

func TestClamp(t *testing.T) {
	tests := []struct {
		index, n, want int
	}{
		{0, 3, 0},
		{2, 3, 2},
		{3, 3, 0},
		{7, 3, 1},
		{-1, 3, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.index, tt.n); got != tt.want {
			t.Errorf("Clamp(%d, %d) = %d, want %d", tt.index, tt.n, got, tt.want)
		}
	}
}

func TestAdvanceCyclesAssignees(t *testing.T) {
	task := autoTask(1, 2, 3)

	var seen []int64
	for i := 0; i < 4; i++ {
		seen = append(seen, *Current(task))
		Advance(task)
	}
	want := []int64{1, 2, 3, 1}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("turn %d = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestAdvanceFullCycleReturnsToStart(t *testing.T) {
	for n := 1; n <= 5; n++ {
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		task := autoTask(ids...)
		task.CurrentAssigneeIndex = n - 1
		start := *Current(task)
		for i := 0; i < n; i++ {
			Advance(task)
		}
		if got := *Current(task); got != start {
			t.Errorf("n=%d: after full cycle got %d, want %d", n, got, start)
		}
	}
}

func TestAdvanceClampsStaleIndex(t *testing.T) {
	task := autoTask(1, 2)
	task.CurrentAssigneeIndex = 5

	if got := Advance(task); got != 0 {
		t.Errorf("Advance = %d, want 0", got)
	}
}

func TestAdvanceNoopCases(t *testing.T) {
	manual := autoTask(1, 2)
	manual.Strategy = model.StrategyManual
	if Advance(manual); manual.CurrentAssigneeIndex != 0 {
		t.Errorf("manual index moved to %d", manual.CurrentAssigneeIndex)
	}
	if Current(manual) != nil {
		t.Error("manual task should have no current assignee")
	}

	empty := autoTask()
	empty.CurrentAssigneeIndex = 4
	if Advance(empty); empty.CurrentAssigneeIndex != 4 {
		t.Errorf("empty index moved to %d", empty.CurrentAssigneeIndex)
	}
	if Current(empty) != nil {
		t.Error("task without assignees should have no current assignee")
	}
}

func TestPointsEarned(t *testing.T) {
	tests := []struct {
		onTime, perDay int
		late           bool
		days, want     int
	}{
		{50, 5, false, 0, 50},
		{50, 5, false, 10, 50},
		{50, 5, true, 0, 50},
		{50, 5, true, 3, 35},
		{50, 5, true, 10, 0},
		{50, 5, true, 20, 0},
		{0, 5, true, 1, 0},
		{30, 0, true, 100, 30},
	}
	for _, tt := range tests {
		got := PointsEarned(tt.onTime, tt.perDay, tt.late, tt.days)
		if got != tt.want {
			t.Errorf("PointsEarned(%d, %d, %v, %d) = %d, want %d", tt.onTime, tt.perDay, tt.late, tt.days, got, tt.want)
		}
	}
}

func TestPointsEarnedNeverNegative(t *testing.T) {
	for onTime := 0; onTime <= 100; onTime += 10 {
		for perDay := 0; perDay <= 20; perDay += 5 {
			for days := 0; days <= 30; days++ {
				for _, late := range []bool{false, true} {
					if got := PointsEarned(onTime, perDay, late, days); got < 0 || got > onTime {
						t.Fatalf("PointsEarned(%d, %d, %v, %d) = %d", onTime, perDay, late, days, got)
					}
				}
			}
		}
	}
}

func TestPointsEarnedExtremeValues(t *testing.T) {
	huge := []int{1 << 31, 1 << 61, 1 << 62, 1<<62 + 1<<61, math.MaxInt}
	onTimes := []int{0, 1, 50, 1 << 40, math.MaxInt}
	perDays := append([]int{1, 5}, huge...)
	days := append([]int{1, 3}, huge...)

	for _, onTime := range onTimes {
		for _, perDay := range perDays {
			for _, d := range days {
				got := PointsEarned(onTime, perDay, true, d)
				if got < 0 || got > onTime {
					t.Fatalf("PointsEarned(%d, %d, true, %d) = %d, want within [0, %d]", onTime, perDay, d, got, onTime)
				}
			}
		}
	}

	if got := PointsEarned(50, 5, true, 1<<62+1<<61); got != 0 {
		t.Errorf("huge lateness = %d, want 0", got)
	}
	if got := PointsEarned(math.MaxInt, 1, true, 1); got != math.MaxInt-1 {
		t.Errorf("one day late on max = %d", got)
	}
	if got := PointsEarned(50, 5, true, -4); got != 50 {
		t.Errorf("negative lateness = %d, want 50", got)
	}
}
