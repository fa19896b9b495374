package handler

import (
	"fmt"
	"net/http"
	"slices"
	"testing"

	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/notify"
)

func TestShoppingList(t *testing.T) {
	f := setupHandlers(t)
	ana := f.user(t, "Ana")
	f.caller = ana.ID

	rec := f.do(t, "POST", "/api/shopping", map[string]any{"name": " Milk ", "quantity": "2"})
	expectStatus(t, rec, http.StatusCreated)
	item := decode[model.ShoppingItem](t, rec)
	if item.Name != "Milk" || item.AddedBy == nil || *item.AddedBy != ana.ID {
		t.Errorf("item = %+v", item)
	}

	path := fmt.Sprintf("/api/shopping/%d", item.ID)
	rec = f.do(t, "POST", path+"/bought", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[model.ShoppingItem](t, rec); !got.Bought {
		t.Error("item should be bought")
	}
	rec = f.do(t, "POST", path+"/bought", map[string]any{"bought": false})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[model.ShoppingItem](t, rec); got.Bought {
		t.Error("item should be unmarked")
	}

	expectStatus(t, f.do(t, "DELETE", path, nil), http.StatusNoContent)
	expectStatus(t, f.do(t, "DELETE", path, nil), http.StatusNotFound)
	expectStatus(t, f.do(t, "POST", path+"/bought", nil), http.StatusNotFound)
	expectStatus(t, f.do(t, "POST", "/api/shopping", map[string]any{"name": ""}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "POST", "/api/shopping", map[string]any{"name": "Eggs", "addedBy": 999}), http.StatusBadRequest)

	f.notifier.Wait()
	if types := f.pub.types(); len(types) != 1 || types[0] != notify.TypeShoppingItemAdded {
		t.Errorf("notifications = %v", types)
	}
}

func TestNotices(t *testing.T) {
	f := setupHandlers(t)

	rec := f.do(t, "POST", "/api/notices", map[string]any{"text": "Plumber at 3pm", "kind": "alert"})
	expectStatus(t, rec, http.StatusCreated)
	notice := decode[model.Notice](t, rec)
	if notice.Kind != model.NoticeAlert || notice.AuthorID != nil {
		t.Errorf("notice = %+v", notice)
	}

	expectStatus(t, f.do(t, "POST", "/api/notices", map[string]any{"text": "x", "kind": "urgent"}), http.StatusBadRequest)

	rec = f.do(t, "POST", "/api/notices", map[string]any{"text": "Bins out"})
	expectStatus(t, rec, http.StatusCreated)
	if n := decode[model.Notice](t, rec); n.Kind != model.NoticeInfo {
		t.Errorf("default kind = %q", n.Kind)
	}

	if list := decode[[]model.Notice](t, f.do(t, "GET", "/api/notices", nil)); len(list) != 2 {
		t.Errorf("notices = %d, want 2", len(list))
	}
	expectStatus(t, f.do(t, "DELETE", fmt.Sprintf("/api/notices/%d", notice.ID), nil), http.StatusNoContent)

	f.notifier.Wait()
	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	messages := make([]string, len(f.pub.events))
	for i, ev := range f.pub.events {
		messages[i] = ev.Message
	}
	if len(messages) != 2 || !slices.Contains(messages, "📢 Someone: Plumber at 3pm") {
		t.Errorf("messages = %q", messages)
	}
}

func TestExpensesAndGoals(t *testing.T) {
	f := setupHandlers(t)
	ana := f.user(t, "Ana")

	rec := f.do(t, "POST", "/api/expenses", map[string]any{
		"title": "Groceries", "amount": 45.99, "paidBy": ana.ID, "date": "2026-03-02",
	})
	expectStatus(t, rec, http.StatusCreated)
	exp := decode[model.Expense](t, rec)
	if exp.AmountCents != 4599 || exp.Category != "food" || exp.SpentOn.Format("2006-01-02") != "2026-03-02" {
		t.Errorf("expense = %+v", exp)
	}
	expectStatus(t, f.do(t, "POST", "/api/expenses", map[string]any{"title": "Free", "amount": 0}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "POST", "/api/expenses", map[string]any{"title": "Misc", "amount": 3, "category": "misc"}), http.StatusBadRequest)

	rec = f.do(t, "POST", "/api/expenses", map[string]any{"title": "Uber home", "amount": 12, "category": "leisure"})
	expectStatus(t, rec, http.StatusCreated)
	if got := decode[model.Expense](t, rec); got.Category != "leisure" {
		t.Errorf("explicit category overridden: %q", got.Category)
	}

	rec = f.do(t, "POST", "/api/goals", map[string]any{"title": "Vacation", "targetAmount": 2000})
	expectStatus(t, rec, http.StatusCreated)
	goal := decode[model.Goal](t, rec)

	rec = f.do(t, "POST", fmt.Sprintf("/api/goals/%d/contribute", goal.ID), map[string]any{"amount": 500})
	expectStatus(t, rec, http.StatusOK)
	goal = decode[model.Goal](t, rec)
	if goal.CurrentCents != 50000 || goal.Progress() != 25 {
		t.Errorf("goal = %+v", goal)
	}
	expectStatus(t, f.do(t, "POST", "/api/goals/999/contribute", map[string]any{"amount": 5}), http.StatusNotFound)
	expectStatus(t, f.do(t, "POST", fmt.Sprintf("/api/goals/%d/contribute", goal.ID), map[string]any{"amount": -5}), http.StatusBadRequest)

	f.notifier.Wait()
	types := f.pub.types()
	for _, want := range []notify.Type{notify.TypeNewExpense, notify.TypeGoalProgress} {
		if !slices.Contains(types, want) {
			t.Errorf("missing %s notification in %v", want, types)
		}
	}
	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	var messages []string
	for _, ev := range f.pub.events {
		messages = append(messages, ev.Message)
	}
	for _, want := range []string{
		"💸 Ana logged an expense: Groceries ($45.99)",
		"🎯 Goal 'Vacation': 25% reached!",
	} {
		if !slices.Contains(messages, want) {
			t.Errorf("missing message %q in %q", want, messages)
		}
	}
}
