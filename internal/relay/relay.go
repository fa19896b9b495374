// Package relay fans notifications out across server instances through
// Redis pub/sub.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dukerupert/eixo/internal/notify"
)

// envelope is the wire format on the Redis channel.
type envelope struct {
	Group string       `json:"group"`
	Event notify.Event `json:"event"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// Relay publishes events to a Redis channel and forwards events received on
// that channel to a local delivery function. With a relay in place every
// instance, including the sender, delivers through Run.
type Relay struct {
	rdb     *goredis.Client
	pub     publisher
	channel string
	logger  *slog.Logger
}

type Options struct {
	Addr     string
	Password string
	Channel  string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Relay, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if opts.Channel == "" {
		opts.Channel = "eixo:events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Relay{
		rdb:     rdb,
		pub:     rdb,
		channel: opts.Channel,
		logger:  logger.With("component", "relay", "channel", opts.Channel),
	}, nil
}

// Publish implements notify.Publisher.
func (r *Relay) Publish(ctx context.Context, group string, ev notify.Event) error {
	raw, err := json.Marshal(envelope{Group: group, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.pub.Publish(ctx, r.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run subscribes to the channel and calls deliver for every event until ctx
// is cancelled.
func (r *Relay) Run(ctx context.Context, deliver func(group string, ev notify.Event)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.logger.Info("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			r.handle(m.Payload, deliver)
		}
	}
}

func (r *Relay) handle(payload string, deliver func(group string, ev notify.Event)) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("bad relay payload", "error", err)
		return
	}
	if env.Group == "" {
		r.logger.Warn("relay payload without group", "type", env.Event.Type)
		return
	}
	deliver(env.Group, env.Event)
}

func (r *Relay) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
