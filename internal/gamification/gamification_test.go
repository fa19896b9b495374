package gamification

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukerupert/eixo/internal/apperr"
	"github.com/dukerupert/eixo/internal/database"
	"github.com/dukerupert/eixo/internal/model"
	"github.com/dukerupert/eixo/internal/store"
)

func setupLedger(t *testing.T) (*Ledger, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLedger(db, nil, logger), db
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp    int
		level int
		title string
	}{
		{0, 1, "Beginner"},
		{999, 1, "Beginner"},
		{1000, 2, "Apprentice"},
		{2499, 2, "Apprentice"},
		{2500, 3, "Practitioner"},
		{5000, 4, "Specialist"},
		{9999, 4, "Specialist"},
		{10000, 5, "Master of the Home"},
		{250000, 5, "Master of the Home"},
	}
	for _, tt := range tests {
		l := LevelFor(tt.xp)
		if l.Number != tt.level || l.Title != tt.title {
			t.Errorf("LevelFor(%d) = %+v, want %d %q", tt.xp, l, tt.level, tt.title)
		}
	}
}

func TestProgress(t *testing.T) {
	p := Progress(1750)
	if p.Current.Number != 2 || p.Next == nil || p.Next.Number != 3 {
		t.Fatalf("progress = %+v", p)
	}
	if p.XPToNext != 750 {
		t.Errorf("XPToNext = %d, want 750", p.XPToNext)
	}
	if p.Percent != 50 {
		t.Errorf("Percent = %v, want 50", p.Percent)
	}

	top := Progress(12000)
	if top.Next != nil || top.Percent != 100 || top.XPToNext != 0 {
		t.Errorf("top progress = %+v", top)
	}
}

func TestApplyCompletion(t *testing.T) {
	u := &model.User{Points: 10, XP: 990, Level: 1, Streak: 4}

	d := ApplyCompletion(u, 50, false)
	if u.Points != 60 || u.XP != 1040 || u.TasksCompleted != 1 || u.Streak != 5 {
		t.Errorf("after on-time credit: %+v", u)
	}
	if u.Level != 2 || !d.LeveledUp() {
		t.Errorf("expected level up, delta = %+v", d)
	}

	d = ApplyCompletion(u, 0, true)
	if u.Points != 60 || u.TasksCompleted != 2 || u.Streak != 5 {
		t.Errorf("after late zero credit: %+v", u)
	}
	if d.LeveledUp() {
		t.Errorf("no level change expected")
	}
}

func TestStreakNeverDecreases(t *testing.T) {
	u := &model.User{Level: 1}
	pattern := []bool{false, true, false, false, true, true, false}
	prev := 0
	for i, late := range pattern {
		ApplyCompletion(u, 10, late)
		if u.Streak < prev {
			t.Fatalf("step %d: streak dropped from %d to %d", i, prev, u.Streak)
		}
		prev = u.Streak
	}
	if u.Streak != 4 {
		t.Errorf("Streak = %d, want 4", u.Streak)
	}
}

func TestDebitRedemptionInsufficientFunds(t *testing.T) {
	l, db := setupLedger(t)
	us, rs := store.NewUserStore(db), store.NewRewardStore(db)

	u, err := us.Create("Ana", "A", "", "")
	if err != nil {
		t.Fatal(err)
	}
	u.Points = 60
	if err := us.SaveProgress(u); err != nil {
		t.Fatal(err)
	}
	r, err := rs.Create("Movie night", 100, "🎬", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = l.DebitRedemption(context.Background(), u.ID, r.ID)
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}

	after, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Points != 60 {
		t.Errorf("Points = %d, want 60", after.Points)
	}
	history, err := rs.ListRedemptionsByUser(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d, want 0", len(history))
	}
}

func TestDebitRedemptionSuccess(t *testing.T) {
	l, db := setupLedger(t)
	us, rs := store.NewUserStore(db), store.NewRewardStore(db)

	u, err := us.Create("Ana", "A", "", "")
	if err != nil {
		t.Fatal(err)
	}
	u.Points, u.XP, u.Streak = 150, 150, 3
	if err := us.SaveProgress(u); err != nil {
		t.Fatal(err)
	}
	r, err := rs.Create("Movie night", 100, "🎬", "")
	if err != nil {
		t.Fatal(err)
	}

	res, err := l.DebitRedemption(context.Background(), u.ID, r.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.User.Points != 50 || res.Redemption.PointsSpent != 100 {
		t.Errorf("result = %+v", res)
	}

	after, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Points != 50 || after.XP != 150 || after.Streak != 3 {
		t.Errorf("user after redeem = %+v", after)
	}
}

func TestDebitRedemptionRejectsInactiveAndMissing(t *testing.T) {
	l, db := setupLedger(t)
	us, rs := store.NewUserStore(db), store.NewRewardStore(db)

	u, err := us.Create("Ana", "A", "", "")
	if err != nil {
		t.Fatal(err)
	}
	r, err := rs.Create("Old", 0, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := rs.Deactivate(r.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := l.DebitRedemption(context.Background(), u.ID, r.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("inactive reward err = %v", err)
	}
	if _, err := l.DebitRedemption(context.Background(), u.ID, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing reward err = %v", err)
	}
	active, err := rs.Create("Free hug", 0, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.DebitRedemption(context.Background(), 999, active.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}

func TestConcurrentCreditsAreNotLost(t *testing.T) {
	l, db := setupLedger(t)
	us := store.NewUserStore(db)

	u, err := us.Create("Ana", "A", "", "")
	if err != nil {
		t.Fatal(err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(u.ID)
			defer unlock()
			errs <- store.InTx(db, func(tx *sql.Tx) error {
				_, _, err := l.CreditCompletion(tx, u.ID, 10, false)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	after, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Points != 200 || after.XP != 200 || after.TasksCompleted != workers || after.Streak != workers {
		t.Errorf("user = %+v", after)
	}
}

func TestConcurrentDebitsNeverOverspend(t *testing.T) {
	l, db := setupLedger(t)
	us, rs := store.NewUserStore(db), store.NewRewardStore(db)

	u, err := us.Create("Ana", "A", "", "")
	if err != nil {
		t.Fatal(err)
	}
	u.Points = 250
	if err := us.SaveProgress(u); err != nil {
		t.Fatal(err)
	}
	r, err := rs.Create("Ice cream", 100, "", "")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.DebitRedemption(context.Background(), u.ID, r.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrInsufficientFunds):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 2 || short != 3 {
		t.Errorf("ok = %d, short = %d, want 2 and 3", ok, short)
	}
	after, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Points != 50 {
		t.Errorf("Points = %d, want 50", after.Points)
	}
}
