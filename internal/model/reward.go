package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Cost        int       `json:"cost"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RewardRedemption struct {
	ID          int64     `json:"id"`
	RewardID    int64     `json:"rewardId"`
	RewardTitle string    `json:"rewardTitle,omitempty"`
	RewardIcon  string    `json:"rewardIcon,omitempty"`
	UserID      int64     `json:"userId"`
	PointsSpent int       `json:"pointsSpent"`
	RedeemedAt  time.Time `json:"redeemedAt"`
}
