package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/eixo/internal/model"
)

type TaskStore struct {
	db *sql.DB
	q  DBTX
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db, q: db}
}

// WithTx returns a TaskStore whose queries run inside tx.
func (s *TaskStore) WithTx(tx *sql.Tx) *TaskStore {
	return &TaskStore{q: tx}
}

// atomic runs fn in a fresh transaction, or directly when the store is
// already bound to one.
func (s *TaskStore) atomic(fn func(ts *TaskStore) error) error {
	if s.db == nil {
		return fn(s)
	}
	return InTx(s.db, func(tx *sql.Tx) error {
		return fn(s.WithTx(tx))
	})
}

// --- Task methods ---

func scanTask(sc scanner) (*model.RecurringTask, error) {
	var t model.RecurringTask
	var dow, dom, lastBy sql.NullInt64
	var scheduled, lastAt sql.NullTime
	var isDone int

	err := sc.Scan(
		&t.ID, &t.Title, &t.Category, &t.Kind, &t.Frequency,
		&dow, &dom, &scheduled, &t.PointsOnTime, &t.PointsLatePerDay,
		&t.Strategy, &t.CurrentAssigneeIndex, &isDone, &lastAt, &lastBy,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.IsDone = isDone != 0
	if dow.Valid {
		v := int(dow.Int64)
		t.DayOfWeek = &v
	}
	if dom.Valid {
		v := int(dom.Int64)
		t.DayOfMonth = &v
	}
	if scheduled.Valid {
		t.ScheduledDate = &scheduled.Time
	}
	if lastAt.Valid {
		t.LastCompletedAt = &lastAt.Time
	}
	if lastBy.Valid {
		t.LastCompletedBy = &lastBy.Int64
	}
	t.Assignees = []model.TaskAssignment{}
	return &t, nil
}

const taskCols = `id, title, category, kind, frequency, day_of_week, day_of_month, scheduled_date,
	points_on_time, points_late_per_day, strategy, current_assignee_index, is_done,
	last_completed_at, last_completed_by, version, created_at, updated_at`

// Create inserts the task definition and its ordered assignee list.
func (s *TaskStore) Create(t *model.RecurringTask, assigneeIDs []int64) (*model.RecurringTask, error) {
	var id int64
	err := s.atomic(func(ts *TaskStore) error {
		var scheduled sql.NullTime
		if t.ScheduledDate != nil {
			scheduled = sql.NullTime{Time: t.ScheduledDate.UTC(), Valid: true}
		}
		now := time.Now().UTC()
		result, err := ts.q.Exec(
			`INSERT INTO tasks (title, category, kind, frequency, day_of_week, day_of_month, scheduled_date,
				points_on_time, points_late_per_day, strategy, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Title, t.Category, t.Kind, t.Frequency, nullInt(t.DayOfWeek), nullInt(t.DayOfMonth), scheduled,
			t.PointsOnTime, t.PointsLatePerDay, t.Strategy, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return ts.insertAssignees(id, assigneeIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *TaskStore) insertAssignees(taskID int64, userIDs []int64) error {
	for i, uid := range userIDs {
		if _, err := s.q.Exec(
			`INSERT INTO task_assignments (task_id, user_id, position) VALUES (?, ?, ?)`,
			taskID, uid, i,
		); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// GetByID returns the task with its assignees, or nil if it does not exist.
func (s *TaskStore) GetByID(id int64) (*model.RecurringTask, error) {
	row := s.q.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	byTask, err := s.assignments(`WHERE a.task_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if as, ok := byTask[id]; ok {
		t.Assignees = as
	}
	return t, nil
}

func (s *TaskStore) List() ([]model.RecurringTask, error) {
	rows, err := s.q.Query(`SELECT ` + taskCols + ` FROM tasks ORDER BY title ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.RecurringTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	rows.Close()

	byTask, err := s.assignments("")
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if as, ok := byTask[tasks[i].ID]; ok {
			tasks[i].Assignees = as
		}
	}
	return tasks, nil
}

func (s *TaskStore) assignments(where string, args ...any) (map[int64][]model.TaskAssignment, error) {
	rows, err := s.q.Query(
		`SELECT a.task_id, a.user_id, u.name, a.position
		FROM task_assignments a JOIN users u ON u.id = a.user_id `+where+`
		ORDER BY a.task_id, a.position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]model.TaskAssignment)
	for rows.Next() {
		var taskID int64
		var a model.TaskAssignment
		if err := rows.Scan(&taskID, &a.UserID, &a.UserName, &a.Position); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out[taskID] = append(out[taskID], a)
	}
	return out, rows.Err()
}

// UpdateDefinition rewrites the editable fields of a task. When assigneeIDs is
// non-nil the assignee list is replaced and the rotation cursor is clamped into
// the new list. The write fails with ErrStale if t.Version is out of date.
func (s *TaskStore) UpdateDefinition(t *model.RecurringTask, assigneeIDs []int64) (*model.RecurringTask, error) {
	err := s.atomic(func(ts *TaskStore) error {
		index := t.CurrentAssigneeIndex
		if assigneeIDs != nil {
			index = clampIndex(index, len(assigneeIDs))
		}

		var scheduled sql.NullTime
		if t.ScheduledDate != nil {
			scheduled = sql.NullTime{Time: t.ScheduledDate.UTC(), Valid: true}
		}
		result, err := ts.q.Exec(
			`UPDATE tasks SET title = ?, category = ?, kind = ?, frequency = ?, day_of_week = ?, day_of_month = ?,
				scheduled_date = ?, points_on_time = ?, points_late_per_day = ?, strategy = ?,
				current_assignee_index = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			t.Title, t.Category, t.Kind, t.Frequency, nullInt(t.DayOfWeek), nullInt(t.DayOfMonth),
			scheduled, t.PointsOnTime, t.PointsLatePerDay, t.Strategy,
			index, time.Now().UTC(), t.ID, t.Version,
		)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := expectOneRow(result); err != nil {
			return err
		}

		if assigneeIDs == nil {
			return nil
		}
		if _, err := ts.q.Exec(`DELETE FROM task_assignments WHERE task_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		return ts.insertAssignees(t.ID, assigneeIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(t.ID)
}

// SaveState persists the completion state of t (cursor, done flag, last
// completion) guarded by t.Version. On success t.Version is advanced.
func (s *TaskStore) SaveState(t *model.RecurringTask) error {
	var lastAt sql.NullTime
	if t.LastCompletedAt != nil {
		lastAt = sql.NullTime{Time: t.LastCompletedAt.UTC(), Valid: true}
	}
	now := time.Now().UTC()
	result, err := s.q.Exec(
		`UPDATE tasks SET current_assignee_index = ?, is_done = ?, last_completed_at = ?, last_completed_by = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		t.CurrentAssigneeIndex, boolInt(t.IsDone), lastAt, nullInt64(t.LastCompletedBy),
		now, t.ID, t.Version,
	)
	if err != nil {
		return fmt.Errorf("save task state: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	t.Version++
	t.UpdatedAt = now
	return nil
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.q.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// --- Completion methods ---

func scanCompletion(sc scanner) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var wasLate int
	err := sc.Scan(&c.ID, &c.TaskID, &c.UserID, &c.CompletedAt, &c.PointsEarned, &wasLate, &c.DaysLate)
	if err != nil {
		return nil, err
	}
	c.WasLate = wasLate != 0
	return &c, nil
}

const completionCols = `id, task_id, user_id, completed_at, points_earned, was_late, days_late`

func (s *TaskStore) CreateCompletion(c model.TaskCompletion) (*model.TaskCompletion, error) {
	result, err := s.q.Exec(
		`INSERT INTO task_completions (task_id, user_id, completed_at, points_earned, was_late, days_late)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.TaskID, c.UserID, c.CompletedAt.UTC(), c.PointsEarned, boolInt(c.WasLate), c.DaysLate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.q.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	return scanCompletion(row)
}

func (s *TaskStore) ListCompletionsByTask(taskID int64) ([]model.TaskCompletion, error) {
	return s.listCompletions(`WHERE task_id = ?`, taskID)
}

func (s *TaskStore) ListCompletionsByUser(userID int64) ([]model.TaskCompletion, error) {
	return s.listCompletions(`WHERE user_id = ?`, userID)
}

func (s *TaskStore) listCompletions(where string, args ...any) ([]model.TaskCompletion, error) {
	rows, err := s.q.Query(
		`SELECT `+completionCols+` FROM task_completions `+where+` ORDER BY completed_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

func clampIndex(index, n int) int {
	if n <= 0 {
		return 0
	}
	index %= n
	if index < 0 {
		index += n
	}
	return index
}
