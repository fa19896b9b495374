package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/chore"
	"github.com/dukerupert/eixo/internal/gamification"
	"github.com/dukerupert/eixo/internal/handler"
	"github.com/dukerupert/eixo/internal/middleware"
	"github.com/dukerupert/eixo/internal/notify"
	"github.com/dukerupert/eixo/internal/store"
	ws "github.com/dukerupert/eixo/internal/websocket"
)

type Options struct {
	LoginRatePerMinute int
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	tokens      *auth.Tokens
	authH       *handler.AuthHandler
	userH       *handler.UserHandler
	taskH       *handler.TaskHandler
	rewardH     *handler.RewardHandler
	householdH  *handler.HouseholdHandler
	processor   *chore.Processor
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires stores, the completion engine and handlers. notifier may be nil,
// in which case nothing is broadcast.
func New(db *sql.DB, hub *ws.Hub, notifier *notify.Emitter, tokens *auth.Tokens, opts Options, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	householdStore := store.NewHouseholdStore(db)

	ledger := gamification.NewLedger(db, notifier, logger.With("component", "ledger"))
	processor := chore.NewProcessor(db, ledger, notifier, logger.With("component", "processor"))

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      tokens,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		userH:       handler.NewUserHandler(userStore, taskStore, ledger, logger.With("component", "user")),
		taskH:       handler.NewTaskHandler(taskStore, userStore, processor, logger.With("component", "task")),
		rewardH:     handler.NewRewardHandler(rewardStore, ledger, logger.With("component", "reward")),
		householdH:  handler.NewHouseholdHandler(householdStore, userStore, notifier, logger.With("component", "household")),
		processor:   processor,
		rateLimiter: middleware.NewRateLimiter(opts.LoginRatePerMinute),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("POST /api/auth/login", s.rateLimited(s.authH.Login))
	mux.Handle("POST /api/users", middleware.OptionalBearer(s.tokens)(http.HandlerFunc(s.userH.Create)))

	s.registerProtectedRoutes(mux)

	// Metrics sits directly on the mux, which sets r.Pattern in place.
	return middleware.RequestLogger(s.logger.With("component", "http"))(middleware.Metrics(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP)(h)
}

// Each protected route is wrapped individually so the mux records the
// matched pattern on the original request.
func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	protect := middleware.RequireBearer(s.tokens)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	// Users
	handle("GET /api/users", s.userH.List)
	handle("GET /api/users/leaderboard", s.userH.Leaderboard)
	handle("GET /api/users/{id}", s.userH.Get)
	handle("GET /api/users/{id}/level", s.userH.Level)
	handle("GET /api/users/{id}/completions", s.userH.Completions)
	handle("PUT /api/users/{id}/pin", s.userH.SetPIN)
	handle("DELETE /api/users/{id}", s.userH.Delete)

	// Tasks
	handle("GET /api/tasks", s.taskH.List)
	handle("POST /api/tasks", s.taskH.Create)
	handle("GET /api/tasks/{id}", s.taskH.Get)
	handle("PUT /api/tasks/{id}", s.taskH.Update)
	handle("DELETE /api/tasks/{id}", s.taskH.Delete)
	handle("POST /api/tasks/{id}/complete", s.taskH.Complete)
	handle("GET /api/tasks/{id}/occurrences", s.taskH.Occurrences)
	handle("GET /api/tasks/{id}/completions", s.taskH.Completions)

	// Rewards
	handle("GET /api/rewards", s.rewardH.List)
	handle("POST /api/rewards", s.rewardH.Create)
	handle("DELETE /api/rewards/{id}", s.rewardH.Delete)
	handle("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	handle("GET /api/rewards/history/{userId}", s.rewardH.History)

	// Shopping list
	handle("GET /api/shopping", s.householdH.ListShopping)
	handle("POST /api/shopping", s.householdH.AddShoppingItem)
	handle("POST /api/shopping/{id}/bought", s.householdH.MarkBought)
	handle("DELETE /api/shopping/{id}", s.householdH.DeleteShoppingItem)

	// Notice board
	handle("GET /api/notices", s.householdH.ListNotices)
	handle("POST /api/notices", s.householdH.CreateNotice)
	handle("DELETE /api/notices/{id}", s.householdH.DeleteNotice)

	// Expenses and goals
	handle("GET /api/expenses", s.householdH.ListExpenses)
	handle("POST /api/expenses", s.householdH.CreateExpense)
	handle("GET /api/goals", s.householdH.ListGoals)
	handle("POST /api/goals", s.householdH.CreateGoal)
	handle("POST /api/goals/{id}/contribute", s.householdH.Contribute)

	// WebSocket
	handle("GET /ws", ws.HandleWebSocket(s.hub))
}
