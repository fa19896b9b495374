package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	TypeTaskCompleted      Type = "TaskCompleted"
	TypeRewardRedeemed     Type = "RewardRedeemed"
	TypeNewExpense         Type = "NewExpense"
	TypeGoalProgress       Type = "GoalProgress"
	TypeShoppingItemAdded  Type = "ShoppingItemAdded"
	TypeNewNotice          Type = "NewNotice"
	TypeDirectNotification Type = "DirectNotification"
)

// Event is a household notification. It serializes to a flat JSON object:
// {"type", "message", "timestamp", ...Fields}.
type Event struct {
	Type      Type
	Message   string
	Timestamp time.Time
	Fields    map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	out["message"] = e.Message
	out["timestamp"] = e.Timestamp.UTC()
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Event{Fields: make(map[string]any)}
	for k, v := range raw {
		var err error
		switch k {
		case "type":
			err = json.Unmarshal(v, &e.Type)
		case "message":
			err = json.Unmarshal(v, &e.Message)
		case "timestamp":
			err = json.Unmarshal(v, &e.Timestamp)
		default:
			var val any
			err = json.Unmarshal(v, &val)
			e.Fields[k] = val
		}
		if err != nil {
			return fmt.Errorf("decode event field %q: %w", k, err)
		}
	}
	return nil
}

// --- Formatters ---

func TaskCompleted(taskID int64, taskTitle, userName string, points int, now time.Time) Event {
	return Event{
		Type:      TypeTaskCompleted,
		Message:   fmt.Sprintf("🎯 %s completed: %s (+%d pts)", userName, taskTitle, points),
		Timestamp: now,
		Fields: map[string]any{
			"taskId":       taskID,
			"taskTitle":    taskTitle,
			"userName":     userName,
			"pointsEarned": points,
		},
	}
}

func RewardRedeemed(userName, rewardTitle string, now time.Time) Event {
	return Event{
		Type:      TypeRewardRedeemed,
		Message:   fmt.Sprintf("🎁 %s redeemed: %s", userName, rewardTitle),
		Timestamp: now,
		Fields: map[string]any{
			"userName":    userName,
			"rewardTitle": rewardTitle,
		},
	}
}

func ExpenseAdded(title string, amountCents int64, paidBy string, now time.Time) Event {
	return Event{
		Type:      TypeNewExpense,
		Message:   fmt.Sprintf("💸 %s logged an expense: %s ($%s)", paidBy, title, FormatCents(amountCents)),
		Timestamp: now,
		Fields: map[string]any{
			"title":       title,
			"amountCents": amountCents,
			"paidBy":      paidBy,
		},
	}
}

func GoalProgress(goalTitle string, currentCents, targetCents int64, now time.Time) Event {
	var progress float64
	if targetCents > 0 {
		progress = float64(currentCents) / float64(targetCents) * 100
	}
	return Event{
		Type:      TypeGoalProgress,
		Message:   fmt.Sprintf("🎯 Goal '%s': %.0f%% reached!", goalTitle, progress),
		Timestamp: now,
		Fields: map[string]any{
			"goalTitle":    goalTitle,
			"currentCents": currentCents,
			"targetCents":  targetCents,
			"progress":     progress,
		},
	}
}

func ShoppingItemAdded(itemName, addedBy string, now time.Time) Event {
	return Event{
		Type:      TypeShoppingItemAdded,
		Message:   fmt.Sprintf("🛒 %s added to the list: %s", addedBy, itemName),
		Timestamp: now,
		Fields: map[string]any{
			"itemName": itemName,
			"addedBy":  addedBy,
		},
	}
}

func NoticePosted(text, author string, now time.Time) Event {
	return Event{
		Type:      TypeNewNotice,
		Message:   fmt.Sprintf("📢 %s: %s", author, text),
		Timestamp: now,
		Fields: map[string]any{
			"text":   text,
			"author": author,
		},
	}
}

// Direct builds a notification addressed to a single user's group.
func Direct(title, message, kind string, now time.Time) Event {
	return Event{
		Type:      TypeDirectNotification,
		Message:   message,
		Timestamp: now,
		Fields: map[string]any{
			"title": title,
			"kind":  kind,
		},
	}
}

// FormatCents renders an amount in cents as "12.34".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// UserGroup is the group addressing a single user's connections.
func UserGroup(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// Someone is used in messages when the acting user is unknown.
const Someone = "Someone"
