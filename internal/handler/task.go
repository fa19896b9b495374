package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/chore"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/recurrence"
	"github.com/dukerupert/eixo/internal/store"
)

const (
	defaultOccurrences = 10
	maxOccurrences     = 366

	defaultPointsOnTime     = 50
	defaultPointsLatePerDay = 5
	maxPoints               = 100000
)

type TaskHandler struct {
	tasks     *store.TaskStore
	users     *store.UserStore
	processor *chore.Processor
	logger    *slog.Logger
	now       func() time.Time
}

func NewTaskHandler(tasks *store.TaskStore, users *store.UserStore, processor *chore.Processor, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, users: users, processor: processor, logger: logger, now: time.Now}
}

type taskRequest struct {
	Title            string          `json:"title" validate:"required,max=100"`
	Category         string          `json:"category" validate:"max=50"`
	Kind             model.TaskKind  `json:"kind" validate:"required,oneof=recurring sporadic"`
	Frequency        model.Frequency `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	DayOfWeek        *int            `json:"dayOfWeek"`
	DayOfMonth       *int            `json:"dayOfMonth"`
	ScheduledDate    string          `json:"scheduledDate"`
	PointsOnTime     *int            `json:"pointsOnTime"`
	PointsLatePerDay *int            `json:"pointsLatePerDay"`
	Strategy         model.Strategy  `json:"distributionStrategy" validate:"omitempty,oneof=auto manual"`
	AssigneeIDs      []int64         `json:"assigneeIds"`
	// Version is only read on update.
	Version *int64 `json:"version"`
}

// apply copies the request onto t and validates the resulting definition.
func (req *taskRequest) apply(t *model.RecurringTask) error {
	t.Title = strings.TrimSpace(req.Title)
	if t.Title == "" {
		return apperr.Validation("title is required")
	}
	t.Category = strings.TrimSpace(req.Category)
	if t.Category == "" {
		t.Category = "home"
	}
	t.Kind = req.Kind

	t.Strategy = req.Strategy
	if t.Strategy == "" {
		t.Strategy = model.StrategyAuto
	}

	t.PointsOnTime = defaultPointsOnTime
	if req.PointsOnTime != nil {
		t.PointsOnTime = *req.PointsOnTime
	}
	t.PointsLatePerDay = defaultPointsLatePerDay
	if req.PointsLatePerDay != nil {
		t.PointsLatePerDay = *req.PointsLatePerDay
	}
	if t.PointsOnTime < 0 || t.PointsLatePerDay < 0 {
		return apperr.Validation("points must not be negative")
	}
	if t.PointsOnTime > maxPoints || t.PointsLatePerDay > maxPoints {
		return apperr.Validation("points must be at most %d", maxPoints)
	}

	t.Frequency, t.DayOfWeek, t.DayOfMonth, t.ScheduledDate = "", nil, nil, nil
	switch req.Kind {
	case model.KindRecurring:
		t.Frequency = req.Frequency
		switch req.Frequency {
		case model.FrequencyWeekly:
			t.DayOfWeek = req.DayOfWeek
		case model.FrequencyMonthly:
			t.DayOfMonth = req.DayOfMonth
		}
	case model.KindSporadic:
		if req.ScheduledDate != "" {
			d, err := parseDate(req.ScheduledDate)
			if err != nil {
				return err
			}
			t.ScheduledDate = &d
		}
	}

	_, err := recurrence.RuleFor(t)
	return err
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and keeps only the calendar date.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q, want YYYY-MM-DD", s)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

func (h *TaskHandler) checkAssignees(ids []int64) error {
	for _, id := range ids {
		u, err := h.users.GetByID(id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Validation("assignee %d does not exist", id)
		}
	}
	return nil
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	today := h.now()
	out := make([]chore.TaskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, chore.WithStatus(t, today))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var task model.RecurringTask
	if err := req.apply(&task); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.checkAssignees(req.AssigneeIDs); err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.tasks.Create(&task, req.AssigneeIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("task created", "task_id", created.ID, "kind", created.Kind)
	writeJSON(w, http.StatusCreated, chore.WithStatus(*created, h.now()))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chore.WithStatus(*task, h.now()))
}

// Update replaces the task definition. Omitting assigneeIds keeps the current
// rotation; omitting version overwrites whatever is stored.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Version != nil {
		task.Version = *req.Version
	}
	if err := req.apply(task); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.checkAssignees(req.AssigneeIDs); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.tasks.UpdateDefinition(task, req.AssigneeIDs)
	if errors.Is(err, store.ErrStale) {
		writeError(w, h.logger, apperr.Conflict("task %d was modified, reload and retry", task.ID))
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chore.WithStatus(*updated, h.now()))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(task.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("task deleted", "task_id", task.ID)
	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	UserID   int64  `json:"userId"`
	WasLate  bool   `json:"wasLate"`
	DaysLate *int   `json:"daysLate"`
	Version  *int64 `json:"version"`
}

// Complete records a completion of the task's pending occurrence. The user
// defaults to the caller. A late completion without daysLate is measured from
// the occurrence's due date.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.UserID == 0 {
		req.UserID = auth.UserID(r.Context())
	}

	daysLate := 0
	switch {
	case req.DaysLate != nil:
		daysLate = *req.DaysLate
	case req.WasLate:
		if daysLate, err = h.measureLateness(id); err != nil {
			writeError(w, h.logger, err)
			return
		}
		daysLate = min(daysLate, chore.MaxDaysLate)
	}

	res, err := h.processor.Complete(r.Context(), chore.Request{
		TaskID:   id,
		UserID:   req.UserID,
		WasLate:  req.WasLate,
		DaysLate: daysLate,
		Version:  req.Version,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) measureLateness(taskID int64) (int, error) {
	task, err := h.tasks.GetByID(taskID)
	if err != nil {
		return 0, err
	}
	if task == nil {
		return 0, apperr.NotFound("task %d not found", taskID)
	}
	now := h.now()
	_, due := chore.ComputeStatus(*task, now)
	if due == nil {
		return 0, nil
	}
	return chore.DaysLate(*due, now), nil
}

type occurrencesResponse struct {
	TaskID      int64                   `json:"taskId"`
	Schedule    string                  `json:"schedule"`
	RRule       string                  `json:"rrule,omitempty"`
	Occurrences []recurrence.Occurrence `json:"occurrences"`
}

// Occurrences projects upcoming occurrences and their assignees. count
// defaults to 10 and is capped at 366; from defaults to today.
func (h *TaskHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	task, ok := h.lookup(w, r)
	if !ok {
		return
	}

	count := defaultOccurrences
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, h.logger, apperr.Validation("count must be a non-negative integer"))
			return
		}
		count = min(n, maxOccurrences)
	}

	from := h.now()
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		from = d
	}

	rule, err := recurrence.RuleFor(task)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	occs, err := recurrence.Project(task, count, from)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, occurrencesResponse{
		TaskID:      task.ID,
		Schedule:    rule.Describe(),
		RRule:       rule.String(),
		Occurrences: occs,
	})
}

func (h *TaskHandler) Completions(w http.ResponseWriter, r *http.Request) {
	task, ok := h.lookup(w, r)
	if !ok {
		return
	}
	completions, err := h.tasks.ListCompletionsByTask(task.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(completions))
}

func (h *TaskHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.RecurringTask, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	if task == nil {
		writeError(w, h.logger, apperr.NotFound("task %d not found", id))
		return nil, false
	}
	return task, true
}
