package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/chore"
	"github.com/dukerupert/eixo/internal/database"
	"github.com/dukerupert/eixo/internal/gamification"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/notify"
	"github.com/dukerupert/eixo/internal/store"
)

var fixedNow = time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) // a Saturday

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, group string, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []notify.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	db       *sql.DB
	users    *store.UserStore
	tasks    *store.TaskStore
	rewards  *store.RewardStore
	tokens   *auth.Tokens
	pub      *recordingPublisher
	notifier *notify.Emitter
	mux      *http.ServeMux

	// caller is put in the request's auth context when non-zero.
	caller int64
}

func setupHandlers(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := &recordingPublisher{}
	notifier := notify.NewEmitter("family", logger, pub)

	f := &fixture{
		db:       db,
		users:    store.NewUserStore(db),
		tasks:    store.NewTaskStore(db),
		rewards:  store.NewRewardStore(db),
		tokens:   auth.NewTokens("test-secret", time.Hour),
		pub:      pub,
		notifier: notifier,
		mux:      http.NewServeMux(),
	}

	ledger := gamification.NewLedger(db, notifier, logger)
	processor := chore.NewProcessor(db, ledger, notifier, logger)

	authH := NewAuthHandler(f.users, f.tokens, logger)
	userH := NewUserHandler(f.users, f.tasks, ledger, logger)
	taskH := NewTaskHandler(f.tasks, f.users, processor, logger)
	taskH.now = func() time.Time { return fixedNow }
	rewardH := NewRewardHandler(f.rewards, ledger, logger)
	householdH := NewHouseholdHandler(store.NewHouseholdStore(db), f.users, notifier, logger)
	householdH.now = func() time.Time { return fixedNow }

	m := f.mux
	m.HandleFunc("POST /api/auth/login", authH.Login)
	m.HandleFunc("GET /api/users", userH.List)
	m.HandleFunc("POST /api/users", userH.Create)
	m.HandleFunc("GET /api/users/leaderboard", userH.Leaderboard)
	m.HandleFunc("GET /api/users/{id}", userH.Get)
	m.HandleFunc("GET /api/users/{id}/level", userH.Level)
	m.HandleFunc("GET /api/users/{id}/completions", userH.Completions)
	m.HandleFunc("PUT /api/users/{id}/pin", userH.SetPIN)
	m.HandleFunc("DELETE /api/users/{id}", userH.Delete)
	m.HandleFunc("GET /api/tasks", taskH.List)
	m.HandleFunc("POST /api/tasks", taskH.Create)
	m.HandleFunc("GET /api/tasks/{id}", taskH.Get)
	m.HandleFunc("PUT /api/tasks/{id}", taskH.Update)
	m.HandleFunc("DELETE /api/tasks/{id}", taskH.Delete)
	m.HandleFunc("POST /api/tasks/{id}/complete", taskH.Complete)
	m.HandleFunc("GET /api/tasks/{id}/occurrences", taskH.Occurrences)
	m.HandleFunc("GET /api/tasks/{id}/completions", taskH.Completions)
	m.HandleFunc("GET /api/rewards", rewardH.List)
	m.HandleFunc("POST /api/rewards", rewardH.Create)
	m.HandleFunc("DELETE /api/rewards/{id}", rewardH.Delete)
	m.HandleFunc("POST /api/rewards/{id}/redeem", rewardH.Redeem)
	m.HandleFunc("GET /api/rewards/history/{userId}", rewardH.History)
	m.HandleFunc("GET /api/shopping", householdH.ListShopping)
	m.HandleFunc("POST /api/shopping", householdH.AddShoppingItem)
	m.HandleFunc("POST /api/shopping/{id}/bought", householdH.MarkBought)
	m.HandleFunc("DELETE /api/shopping/{id}", householdH.DeleteShoppingItem)
	m.HandleFunc("GET /api/notices", householdH.ListNotices)
	m.HandleFunc("POST /api/notices", householdH.CreateNotice)
	m.HandleFunc("DELETE /api/notices/{id}", householdH.DeleteNotice)
	m.HandleFunc("GET /api/expenses", householdH.ListExpenses)
	m.HandleFunc("POST /api/expenses", householdH.CreateExpense)
	m.HandleFunc("GET /api/goals", householdH.ListGoals)
	m.HandleFunc("POST /api/goals", householdH.CreateGoal)
	m.HandleFunc("POST /api/goals/{id}/contribute", householdH.Contribute)

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if f.caller != 0 {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: f.caller}))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.users.Create(name, name[:1], "#000000", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}
