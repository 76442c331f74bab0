// Package queue consumes platform events from a Redis list and feeds them to
// the workflow engine's event dispatch.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list platform services push events onto.
const DefaultQueue = "compas:platform:events"

const popTimeout = 1 * time.Second

// Dispatcher receives decoded platform events. The engine implements this.
type Dispatcher interface {
	DispatchEvent(ctx context.Context, name string, payload map[string]any) []string
}

// envelope is the wire format platform services push: the event name plus an
// arbitrary payload.
type envelope struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// Consumer pops platform event envelopes off a Redis list and dispatches
// them. One consumer goroutine per instance; events fan out to workflows
// inside the engine.
type Consumer struct {
	Addr     string
	Password string
	DB       string
	Queue    string

	client     redis.UniversalClient
	dispatcher Dispatcher
	logger     *slog.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewConsumer builds a consumer from connection config. Queue defaults to
// DefaultQueue, addr to localhost:6379.
func NewConsumer(config map[string]string, dispatcher Dispatcher, logger *slog.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, errors.New("queue consumer requires a dispatcher")
	}

	queue := config["queue"]
	if queue == "" {
		queue = DefaultQueue
	}

	addr := config["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	return &Consumer{
		Addr:       addr,
		Password:   config["password"],
		DB:         config["db"],
		Queue:      queue,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_consumer",
			"queue", queue,
		),
	}, nil
}

// Start connects to Redis and begins consuming until Stop or ctx
// cancellation.
func (c *Consumer) Start(ctx context.Context) error {
	db := 0

	if c.DB != "" {
		parsed, err := strconv.Atoi(c.DB)
		if err != nil {
			return fmt.Errorf("invalid db value %q: %w", c.DB, err)
		}

		db = parsed
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", c.Addr, "db", db)

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	c.logger.InfoContext(ctx, "Starting platform event consumer")

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Platform event consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping consumer")

			return
		default:
			if err := c.processMessage(ctx); err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// processMessage pops one envelope and dispatches it. Malformed messages are
// dropped with a log line rather than requeued.
func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, popTimeout, c.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var event envelope
	if err := json.Unmarshal([]byte(message), &event); err != nil || event.Event == "" {
		c.logger.WarnContext(ctx, "Dropping malformed platform event", "message", message)

		return nil
	}

	executions := c.dispatcher.DispatchEvent(ctx, event.Event, event.Payload)
	c.logger.InfoContext(ctx, "Platform event dispatched",
		"event", event.Event, "executions", len(executions))

	return nil
}

// Stop halts consumption and closes the Redis connection.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping platform event consumer")

	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
