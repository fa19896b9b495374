package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/eixo/internal/model"
)

// HouseholdStore persists the shared household records: shopping list,
// notice board, expenses and savings goals.
type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

// --- Shopping methods ---

const shoppingCols = `id, name, quantity, bought, added_by, created_at`

func scanShoppingItem(sc scanner) (*model.ShoppingItem, error) {
	var it model.ShoppingItem
	var bought int
	var addedBy sql.NullInt64
	if err := sc.Scan(&it.ID, &it.Name, &it.Quantity, &bought, &addedBy, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.Bought = bought != 0
	if addedBy.Valid {
		it.AddedBy = &addedBy.Int64
	}
	return &it, nil
}

func (s *HouseholdStore) AddShoppingItem(name, quantity string, addedBy *int64) (*model.ShoppingItem, error) {
	if quantity == "" {
		quantity = "1"
	}
	result, err := s.db.Exec(
		`INSERT INTO shopping_items (name, quantity, added_by) VALUES (?, ?, ?)`,
		name, quantity, nullInt64(addedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetShoppingItem(id)
}

func (s *HouseholdStore) GetShoppingItem(id int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+shoppingCols+` FROM shopping_items WHERE id = ?`, id)
	it, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return it, nil
}

// ListShopping returns unbought items first, then by insertion order.
func (s *HouseholdStore) ListShopping() ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(`SELECT ` + shoppingCols + ` FROM shopping_items ORDER BY bought ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		it, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *HouseholdStore) SetBought(id int64, bought bool) (*model.ShoppingItem, error) {
	if _, err := s.db.Exec(`UPDATE shopping_items SET bought = ? WHERE id = ?`, boolInt(bought), id); err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	return s.GetShoppingItem(id)
}

func (s *HouseholdStore) DeleteShoppingItem(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// --- Notice methods ---

const noticeCols = `id, text, kind, author_id, created_at`

func scanNotice(sc scanner) (*model.Notice, error) {
	var n model.Notice
	var author sql.NullInt64
	if err := sc.Scan(&n.ID, &n.Text, &n.Kind, &author, &n.CreatedAt); err != nil {
		return nil, err
	}
	if author.Valid {
		n.AuthorID = &author.Int64
	}
	return &n, nil
}

func (s *HouseholdStore) CreateNotice(text string, kind model.NoticeKind, authorID *int64) (*model.Notice, error) {
	if kind == "" {
		kind = model.NoticeInfo
	}
	result, err := s.db.Exec(
		`INSERT INTO notices (text, kind, author_id) VALUES (?, ?, ?)`,
		text, kind, nullInt64(authorID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert notice: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+noticeCols+` FROM notices WHERE id = ?`, id)
	return scanNotice(row)
}

// ListNotices returns notices newest first.
func (s *HouseholdStore) ListNotices() ([]model.Notice, error) {
	rows, err := s.db.Query(`SELECT ` + noticeCols + ` FROM notices ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var notices []model.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, *n)
	}
	return notices, rows.Err()
}

func (s *HouseholdStore) DeleteNotice(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM notices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}

// --- Expense methods ---

const expenseCols = `id, title, amount_cents, category, paid_by, spent_on, created_at`

func scanExpense(sc scanner) (*model.Expense, error) {
	var e model.Expense
	var paidBy sql.NullInt64
	if err := sc.Scan(&e.ID, &e.Title, &e.AmountCents, &e.Category, &paidBy, &e.SpentOn, &e.CreatedAt); err != nil {
		return nil, err
	}
	if paidBy.Valid {
		e.PaidBy = &paidBy.Int64
	}
	return &e, nil
}

func (s *HouseholdStore) CreateExpense(title string, amountCents int64, category string, paidBy *int64, spentOn time.Time) (*model.Expense, error) {
	if category == "" {
		category = "other"
	}
	result, err := s.db.Exec(
		`INSERT INTO expenses (title, amount_cents, category, paid_by, spent_on) VALUES (?, ?, ?, ?, ?)`,
		title, amountCents, category, nullInt64(paidBy), spentOn.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

// ListExpenses returns expenses most recent first.
func (s *HouseholdStore) ListExpenses() ([]model.Expense, error) {
	rows, err := s.db.Query(`SELECT ` + expenseCols + ` FROM expenses ORDER BY spent_on DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// --- Goal methods ---

const goalCols = `id, title, description, target_cents, current_cents, unit, deadline, created_at`

func scanGoal(sc scanner) (*model.Goal, error) {
	var g model.Goal
	var deadline sql.NullTime
	if err := sc.Scan(&g.ID, &g.Title, &g.Description, &g.TargetCents, &g.CurrentCents, &g.Unit, &deadline, &g.CreatedAt); err != nil {
		return nil, err
	}
	if deadline.Valid {
		g.Deadline = &deadline.Time
	}
	return &g, nil
}

func (s *HouseholdStore) CreateGoal(title, description string, targetCents int64, unit string, deadline *time.Time) (*model.Goal, error) {
	if unit == "" {
		unit = "$"
	}
	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: deadline.UTC(), Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO goals (title, description, target_cents, unit, deadline) VALUES (?, ?, ?, ?, ?)`,
		title, description, targetCents, unit, dl,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetGoal(id)
}

func (s *HouseholdStore) GetGoal(id int64) (*model.Goal, error) {
	row := s.db.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *HouseholdStore) ListGoals() ([]model.Goal, error) {
	rows, err := s.db.Query(`SELECT ` + goalCols + ` FROM goals ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// Contribute adds amountCents to a goal and returns the updated goal, or nil
// if the goal does not exist.
func (s *HouseholdStore) Contribute(id, amountCents int64) (*model.Goal, error) {
	result, err := s.db.Exec(`UPDATE goals SET current_cents = current_cents + ? WHERE id = ?`, amountCents, id)
	if err != nil {
		return nil, fmt.Errorf("contribute to goal: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.GetGoal(id)
}
