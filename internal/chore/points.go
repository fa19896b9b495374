package chore

// PointsEarned returns the points for one completion. Late completions lose
// latePerDay for each day late; the result never goes below zero and never
// exceeds onTime.
func PointsEarned(onTime, latePerDay int, wasLate bool, daysLate int) int {
	if onTime <= 0 {
		return 0
	}
	if !wasLate || latePerDay <= 0 || daysLate <= 0 {
		return onTime
	}
	// latePerDay*daysLate <= onTime below, so the product cannot overflow.
	if daysLate > onTime/latePerDay {
		return 0
	}
	return onTime - latePerDay*daysLate
}
