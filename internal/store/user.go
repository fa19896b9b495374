package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/eixo/internal/model"
)

type UserStore struct {
	db *sql.DB
	q  DBTX
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, q: db}
}

// WithTx returns a UserStore whose queries run inside tx.
func (s *UserStore) WithTx(tx *sql.Tx) *UserStore {
	return &UserStore{q: tx}
}

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	err := sc.Scan(&u.ID, &u.Name, &u.Initials, &u.Color, &u.PINHash,
		&u.Points, &u.XP, &u.Level, &u.Streak, &u.TasksCompleted, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, name, initials, color, pin_hash, points, xp, level, streak, tasks_completed, created_at`

func (s *UserStore) Create(name, initials, color, pinHash string) (*model.User, error) {
	result, err := s.q.Exec(
		`INSERT INTO users (name, initials, color, pin_hash) VALUES (?, ?, ?, ?)`,
		name, initials, color, pinHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.q.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByName looks a user up case-insensitively.
func (s *UserStore) GetByName(name string) (*model.User, error) {
	row := s.q.QueryRow(`SELECT `+userCols+` FROM users WHERE name = ? COLLATE NOCASE`, name)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	return s.list(`ORDER BY name ASC`)
}

// Leaderboard orders users by points, then XP, then name.
func (s *UserStore) Leaderboard() ([]model.User, error) {
	return s.list(`ORDER BY points DESC, xp DESC, name ASC`)
}

func (s *UserStore) list(order string) ([]model.User, error) {
	rows, err := s.q.Query(`SELECT ` + userCols + ` FROM users ` + order)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SaveProgress writes the gamification counters of u.
func (s *UserStore) SaveProgress(u *model.User) error {
	result, err := s.q.Exec(
		`UPDATE users SET points = ?, xp = ?, level = ?, streak = ?, tasks_completed = ? WHERE id = ?`,
		u.Points, u.XP, u.Level, u.Streak, u.TasksCompleted, u.ID,
	)
	if err != nil {
		return fmt.Errorf("save user progress: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *UserStore) SetPIN(id int64, pinHash string) error {
	_, err := s.q.Exec(`UPDATE users SET pin_hash = ? WHERE id = ?`, pinHash, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.q.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
