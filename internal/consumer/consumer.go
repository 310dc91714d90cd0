// Package consumer drains the transport stream into durable storage.
// Delivery is at-least-once; the store's idempotent upsert absorbs replays.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mteodoro/riskstream/internal/event"
	"github.com/mteodoro/riskstream/internal/metrics"
)

// Store is the persistence edge the consumer writes into.
type Store interface {
	PutEvent(ctx context.Context, ev *event.Event, payload []byte) error
}

// Config holds consumer settings.
type Config struct {
	RedisURL      string
	RedisPassword string
	Stream        string
	Group         string
	Name          string
	BatchSize     int64
	Block         time.Duration
	Writers       int
	MaxDuration   time.Duration // <= 0 means run until cancelled
}

// Summary is the final accounting for a consumer run.
type Summary struct {
	RecordsWritten int64
	Errors         int64
	Elapsed        time.Duration
}

// Consumer reads events from a Redis Stream consumer group and persists them
// through a small writer pool.
type Consumer struct {
	client *redis.Client
	cfg    Config
	store  Store
	logger *slog.Logger

	written atomic.Int64
	errors  atomic.Int64
}

// New connects to Redis, verifies the connection, and ensures the consumer
// group exists.
func New(cfg Config, st Store, logger *slog.Logger) (*Consumer, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("consumer: invalid redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opt.Password = cfg.RedisPassword
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("consumer: redis ping failed: %w", err)
	}

	err = client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, fmt.Errorf("consumer: create group %s: %w", cfg.Group, err)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Writers <= 0 {
		cfg.Writers = 4
	}

	return &Consumer{
		client: client,
		cfg:    cfg,
		store:  st,
		logger: logger.With("component", "consumer", "stream_key", cfg.Stream),
	}, nil
}

// Run consumes until ctx is cancelled or the duration budget is spent, then
// returns the accounting so far. Partial results survive cancellation.
func (c *Consumer) Run(ctx context.Context) Summary {
	start := time.Now()
	if c.cfg.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.MaxDuration)
		defer cancel()
	}

	// Writers get a detached context so in-flight messages still land when
	// the read loop is cancelled.
	pool := newWriterPool(context.WithoutCancel(ctx), c.cfg.Writers, int(c.cfg.BatchSize)*4, c.persist)

	c.logger.Info("consumer starting", "group", c.cfg.Group, "name", c.cfg.Name)

	for ctx.Err() == nil {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			c.logger.Error("xreadgroup failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if !pool.Submit(msg) {
					// Queue full, absorb the write inline.
					c.persist(ctx, msg)
				}
			}
		}
	}

	pool.Drain()
	summary := Summary{
		RecordsWritten: c.written.Load(),
		Errors:         c.errors.Load(),
		Elapsed:        time.Since(start),
	}
	c.logger.Info("consumer finished",
		"records_written", summary.RecordsWritten,
		"errors", summary.Errors,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary
}

// persist decodes one message, writes it to the store, and acknowledges it.
// Failed messages stay pending in the group for redelivery.
func (c *Consumer) persist(ctx context.Context, msg redis.XMessage) {
	ev, payload, err := decodePayload(msg.Values)
	if err != nil {
		c.errors.Add(1)
		metrics.PersistErrors.Inc()
		c.logger.Error("message decode failed", "stream_id", msg.ID, "err", err)
		return
	}

	if err := c.store.PutEvent(ctx, ev, payload); err != nil {
		c.errors.Add(1)
		metrics.PersistErrors.Inc()
		c.logger.Error("persist failed", "stream_id", msg.ID, "event_id", ev.EventID, "err", err)
		return
	}
	c.written.Add(1)
	metrics.RecordsPersisted.Inc()

	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		c.logger.Warn("xack failed", "stream_id", msg.ID, "err", err)
	}
}

// decodePayload extracts and parses the event JSON from a stream entry.
func decodePayload(values map[string]interface{}) (*event.Event, []byte, error) {
	data, ok := values["data"]
	if !ok {
		return nil, nil, errors.New("message missing data field")
	}
	raw, ok := data.(string)
	if !ok {
		return nil, nil, errors.New("data field is not a string")
	}
	ev, err := event.Unmarshal([]byte(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, []byte(raw), nil
}

// Close releases the Redis connection.
func (c *Consumer) Close() error {
	return c.client.Close()
}
