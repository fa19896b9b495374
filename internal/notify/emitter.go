package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/eixo/internal/metrics"
)

// Publisher delivers an event to every subscriber of a group.
type Publisher interface {
	Publish(ctx context.Context, group string, ev Event) error
}

// Emitter dispatches events to its publishers in the background. Delivery is
// best effort: failures are logged and counted, never returned to the caller.
// A nil *Emitter discards everything.
type Emitter struct {
	publishers []Publisher
	household  string
	timeout    time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewEmitter(household string, logger *slog.Logger, publishers ...Publisher) *Emitter {
	return &Emitter{
		publishers: publishers,
		household:  household,
		timeout:    5 * time.Second,
		logger:     logger,
	}
}

// Household returns the group every household member belongs to.
func (e *Emitter) Household() string {
	if e == nil {
		return ""
	}
	return e.household
}

// Emit sends ev to group without blocking.
func (e *Emitter) Emit(group string, ev Event) {
	if e == nil || len(e.publishers) == 0 {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	e.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		failed := false
		for _, p := range e.publishers {
			if err := p.Publish(ctx, group, ev); err != nil {
				failed = true
				e.logger.Warn("publish notification", "type", ev.Type, "group", group, "error", err)
			}
		}
		if failed {
			metrics.NotificationsFailed.WithLabelValues(string(ev.Type)).Inc()
			return
		}
		metrics.NotificationsSent.WithLabelValues(string(ev.Type)).Inc()
	})
}

func (e *Emitter) EmitHousehold(ev Event) {
	e.Emit(e.Household(), ev)
}

func (e *Emitter) EmitUser(userID int64, ev Event) {
	e.Emit(UserGroup(userID), ev)
}

// Wait blocks until all in-flight notifications have been attempted.
func (e *Emitter) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}
