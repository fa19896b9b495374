package gamification

import "github.com/dukerupert/eixo/internal/model"

type Level struct {
	Number int    `json:"number"`
	MinXP  int    `json:"minXp"`
	Title  string `json:"title"`
}

// Levels is ordered by MinXP ascending.
var Levels = []Level{
	{Number: 1, MinXP: 0, Title: "Beginner"},
	{Number: 2, MinXP: 1000, Title: "Apprentice"},
	{Number: 3, MinXP: 2500, Title: "Practitioner"},
	{Number: 4, MinXP: 5000, Title: "Specialist"},
	{Number: 5, MinXP: 10000, Title: "Master of the Home"},
}

// LevelFor returns the highest level whose threshold is at or below xp.
func LevelFor(xp int) Level {
	current := Levels[0]
	for _, l := range Levels {
		if xp >= l.MinXP {
			current = l
		}
	}
	return current
}

type LevelProgress struct {
	XP       int     `json:"xp"`
	Current  Level   `json:"current"`
	Next     *Level  `json:"next,omitempty"`
	XPToNext int     `json:"xpToNext"`
	Percent  float64 `json:"percent"`
}

// Progress reports how far xp is through the current level. At the top
// level Next is nil and Percent is 100.
func Progress(xp int) LevelProgress {
	cur := LevelFor(xp)
	p := LevelProgress{XP: xp, Current: cur, Percent: 100}
	for i, l := range Levels {
		if l.Number == cur.Number && i+1 < len(Levels) {
			next := Levels[i+1]
			p.Next = &next
			p.XPToNext = next.MinXP - xp
			p.Percent = float64(xp-cur.MinXP) / float64(next.MinXP-cur.MinXP) * 100
		}
	}
	return p
}

// Delta describes what a credit changed on a user.
type Delta struct {
	Points    int `json:"points"`
	PrevLevel int `json:"prevLevel"`
	NewLevel  int `json:"newLevel"`
}

func (d Delta) LeveledUp() bool {
	return d.NewLevel > d.PrevLevel
}

// ApplyCompletion credits points for one completion. Points and XP grow by the
// same amount, the completion count always grows, and the streak grows only for
// on-time completions. The streak is never reduced here.
func ApplyCompletion(u *model.User, points int, wasLate bool) Delta {
	if points < 0 {
		points = 0
	}
	prev := LevelFor(u.XP).Number
	if u.Level > prev {
		prev = u.Level
	}

	u.Points += points
	u.XP += points
	u.TasksCompleted++
	if !wasLate {
		u.Streak++
	}
	u.Level = LevelFor(u.XP).Number

	return Delta{Points: points, PrevLevel: prev, NewLevel: u.Level}
}
