// Package queue implements the offline message queue on an external
// Redis list store. Broadcasts that target an empty room are parked in a
// per-room FIFO list and replayed when the next client joins. The
// adapter is best-effort: the in-memory registry is authoritative and
// store failures are logged and swallowed.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/metrics"
)

// TTL is the lifetime of a room's backlog list, refreshed on every push.
const TTL = 24 * time.Hour

// Service handles all interaction with the Redis list store.
// A nil *Service is valid and behaves as an unconfigured no-op queue.
type Service struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// Client returns the underlying Redis client.
func (s *Service) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// NewService connects to the list store described by redisURL
// (redis://[:password@]host:port[/db]).
func NewService(redisURL string) (*Service, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 30 * time.Second
	opts.WriteTimeout = 30 * time.Second

	rdb := redis.NewClient(opts)

	// Ping to verify connection immediately
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	st := gobreaker.Settings{
		Name:        "queue",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateVal)
		},
	}

	logging.Info(ctx, "Connected to Redis list store", zap.String("addr", opts.Addr))
	return &Service{
		client: rdb,
		cb:     gobreaker.NewCircuitBreaker(st),
	}, nil
}

func keyFor(room string) string {
	// Key schema: "messages:{room}"
	return "messages:" + room
}

// Push appends message to the room's backlog and refreshes its TTL.
// Failures are logged and swallowed.
func (s *Service) Push(ctx context.Context, room, message string) {
	if s == nil || s.client == nil {
		return // Unconfigured, memory-only semantics
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		key := keyFor(room)
		if err := s.client.RPush(ctx, key, message).Err(); err != nil {
			return nil, err
		}
		return nil, s.client.Expire(ctx, key, TTL).Err()
	})

	if err != nil {
		metrics.QueueOperationsTotal.WithLabelValues("push", "error").Inc()
		if err == gobreaker.ErrOpenState {
			logging.Warn(ctx, "Queue circuit breaker open: dropping message", zap.String("room", room))
			return
		}
		logging.Error(ctx, "Failed to push message to queue", zap.String("room", room), zap.Error(err))
		return
	}

	metrics.QueueOperationsTotal.WithLabelValues("push", "ok").Inc()
}

// PopOne removes and returns the oldest queued message for room.
// The second return is false when the backlog is empty, the store is
// unconfigured, or the store is unreachable.
func (s *Service) PopOne(ctx context.Context, room string) (string, bool) {
	if s == nil || s.client == nil {
		return "", false
	}

	res, err := s.cb.Execute(func() (interface{}, error) {
		msg, err := s.client.LPop(ctx, keyFor(room)).Result()
		if err == redis.Nil {
			// An empty backlog is not a store failure; keep the breaker closed.
			return nil, nil
		}
		return msg, err
	})

	if err != nil {
		metrics.QueueOperationsTotal.WithLabelValues("pop", "error").Inc()
		if err == gobreaker.ErrOpenState {
			logging.Warn(ctx, "Queue circuit breaker open: skipping replay", zap.String("room", room))
			return "", false
		}
		logging.Error(ctx, "Failed to pop message from queue", zap.String("room", room), zap.Error(err))
		return "", false
	}

	if res == nil {
		return "", false // Backlog empty
	}

	metrics.QueueOperationsTotal.WithLabelValues("pop", "ok").Inc()
	return res.(string), true
}

// Ping checks store connectivity. Used by health checks.
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Ping(ctx).Err()
	})
	return err
}

// Close gracefully shuts down the store connection.
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
