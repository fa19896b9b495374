package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/eixo/internal/model"
)

type RewardStore struct {
	db *sql.DB
	q  DBTX
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db, q: db}
}

// WithTx returns a RewardStore whose queries run inside tx.
func (s *RewardStore) WithTx(tx *sql.Tx) *RewardStore {
	return &RewardStore{q: tx}
}

// --- Reward methods ---

func scanReward(sc scanner) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := sc.Scan(&r.ID, &r.Title, &r.Cost, &r.Icon, &r.Description, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, title, cost, icon, description, active, created_at`

func (s *RewardStore) Create(title string, cost int, icon, description string) (*model.Reward, error) {
	if icon == "" {
		icon = "🎁"
	}
	result, err := s.q.Exec(
		`INSERT INTO rewards (title, cost, icon, description) VALUES (?, ?, ?, ?)`,
		title, cost, icon, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.q.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListActive returns the rewards still on offer, cheapest first.
func (s *RewardStore) ListActive() ([]model.Reward, error) {
	rows, err := s.q.Query(`SELECT ` + rewardCols + ` FROM rewards WHERE active = 1 ORDER BY cost ASC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// Deactivate withdraws a reward from the catalogue. Redemption history keeps
// referring to it.
func (s *RewardStore) Deactivate(id int64) error {
	_, err := s.q.Exec(`UPDATE rewards SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate reward: %w", err)
	}
	return nil
}

// --- Redemption methods ---

func scanRedemption(sc scanner) (*model.RewardRedemption, error) {
	var r model.RewardRedemption
	err := sc.Scan(&r.ID, &r.RewardID, &r.RewardTitle, &r.RewardIcon, &r.UserID, &r.PointsSpent, &r.RedeemedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const redemptionSelect = `SELECT rr.id, rr.reward_id, rw.title, rw.icon, rr.user_id, rr.points_spent, rr.redeemed_at
	FROM reward_redemptions rr JOIN rewards rw ON rw.id = rr.reward_id`

func (s *RewardStore) CreateRedemption(rewardID, userID int64, pointsSpent int, at time.Time) (*model.RewardRedemption, error) {
	result, err := s.q.Exec(
		`INSERT INTO reward_redemptions (reward_id, user_id, points_spent, redeemed_at) VALUES (?, ?, ?, ?)`,
		rewardID, userID, pointsSpent, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.q.QueryRow(redemptionSelect+` WHERE rr.id = ?`, id)
	return scanRedemption(row)
}

// ListRedemptionsByUser returns a user's redemption history, newest first.
func (s *RewardStore) ListRedemptionsByUser(userID int64) ([]model.RewardRedemption, error) {
	rows, err := s.q.Query(redemptionSelect+` WHERE rr.user_id = ? ORDER BY rr.redeemed_at DESC, rr.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.RewardRedemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}
