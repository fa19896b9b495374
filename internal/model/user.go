package model

import "time"

// User is a household member together with the gamification counters.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Initials       string    `json:"initials"`
	Color          string    `json:"color"`
	PINHash        string    `json:"-"`
	Points         int       `json:"points"`
	XP             int       `json:"xp"`
	Level          int       `json:"level"`
	Streak         int       `json:"streak"`
	TasksCompleted int       `json:"tasksCompleted"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (u *User) HasPIN() bool {
	return u.PINHash != ""
}
