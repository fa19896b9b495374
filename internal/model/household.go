package model

import "time"

type ShoppingItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity"`
	Bought    bool      `json:"bought"`
	AddedBy   *int64    `json:"addedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type NoticeKind string

const (
	NoticeInfo   NoticeKind = "info"
	NoticeAlert  NoticeKind = "alert"
	NoticeStatus NoticeKind = "status"
)

type Notice struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Kind      NoticeKind `json:"kind"`
	AuthorID  *int64     `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Expense amounts are stored in cents.
type Expense struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amountCents"`
	Category    string    `json:"category"`
	PaidBy      *int64    `json:"paidBy"`
	SpentOn     time.Time `json:"spentOn"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Goal struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetCents  int64      `json:"targetCents"`
	CurrentCents int64      `json:"currentCents"`
	Unit         string     `json:"unit"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Progress returns the completion percentage, which may exceed 100.
func (g *Goal) Progress() float64 {
	if g.TargetCents <= 0 {
		return 0
	}
	return float64(g.CurrentCents) / float64(g.TargetCents) * 100
}
