package requests

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dealmungchi/bestdeal/config"
	"github.com/dealmungchi/bestdeal/internal/finder"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// Stream entry fields
const (
	FieldID     = "id"
	FieldTerm   = "term"
	FieldSource = "source"
	FieldRegion = "region"
	FieldChatID = "chat_id"
)

// RedisSource reads requests from a Redis stream through a consumer group.
// After a restart it first replays entries that were read but never
// acknowledged, so a request whose report was not published gets another
// attempt. Next must not be called concurrently.
type RedisSource struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	block     time.Duration
	count     int64
	claimIdle time.Duration
	// pendingCursor is the last replayed pending entry; empty once caught up
	pendingCursor string
}

// NewRedisSource creates a source reading stream as consumer of group
func NewRedisSource(addr string, db int, stream, group, consumer string, count int) *RedisSource {
	// Blocking reads must stop when the worker shuts down
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		DB:                    db,
		ContextTimeoutEnabled: true,
	})

	if count < 1 {
		count = 1
	}

	return &RedisSource{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		block:         5 * time.Second,
		count:         int64(count),
		claimIdle:     time.Minute,
		pendingCursor: "0",
	}
}

// NewFromConfig creates the request source of the worker
func NewFromConfig(cfg *config.Config) *RedisSource {
	return NewRedisSource(cfg.RedisAddr, cfg.RedisDB, cfg.RedisRequestStream, cfg.RedisRequestGroup, cfg.RedisConsumer, cfg.WorkerConcurrency)
}

// EnsureGroup creates the stream and consumer group when missing
func (s *RedisSource) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.NewConfiguration("failed to create consumer group "+s.group, err)
	}
	return nil
}

// Submit appends a request to the stream
func (s *RedisSource) Submit(ctx context.Context, req finder.Request) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			FieldID:     req.ID,
			FieldTerm:   req.Term,
			FieldSource: req.Source,
			FieldRegion: req.Region,
			FieldChatID: req.ChatID,
		},
	}).Result()
	if err != nil {
		return "", errors.NewPublisher(s.stream, "xadd failed", err)
	}
	return id, nil
}

// Next returns the next batch of requests. Entries without a search term
// are acknowledged and skipped.
func (s *RedisSource) Next(ctx context.Context) ([]Message, error) {
	if s.pendingCursor != "" {
		messages, err := s.replayPending(ctx)
		if err != nil || len(messages) > 0 {
			return messages, err
		}
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.count,
		Block:    s.block,
	}).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", s.stream, err)
	}

	var entries []redis.XMessage
	for _, stream := range streams {
		entries = append(entries, stream.Messages...)
	}
	return s.toMessages(ctx, entries)
}

// replayPending walks this consumer's pending entries once, after taking
// over entries that other consumers left idle for longer than claimIdle.
func (s *RedisSource) replayPending(ctx context.Context) ([]Message, error) {
	if s.pendingCursor == "0" {
		s.claimIdleEntries(ctx)
	}

	for s.pendingCursor != "" {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.stream, s.pendingCursor},
			Count:    s.count,
			Block:    -1,
		}).Result()
		if err != nil && !stderrors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("xreadgroup %s pending: %w", s.stream, err)
		}

		var entries []redis.XMessage
		for _, stream := range streams {
			entries = append(entries, stream.Messages...)
		}
		if len(entries) == 0 {
			s.pendingCursor = ""
			break
		}
		s.pendingCursor = entries[len(entries)-1].ID

		messages, err := s.toMessages(ctx, entries)
		if err != nil || len(messages) > 0 {
			logger.Info("Replaying %d pending requests from %s", len(messages), s.stream)
			return messages, err
		}
	}
	return nil, nil
}

func (s *RedisSource) claimIdleEntries(ctx context.Context) {
	if s.claimIdle <= 0 {
		return
	}

	start := "0-0"
	for {
		claimed, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.claimIdle,
			Start:    start,
			Count:    s.count,
		}).Result()
		if err != nil {
			logger.Warn("Failed to claim idle requests on %s: %v", s.stream, err)
			return
		}
		if len(claimed) > 0 {
			logger.Info("Claimed %d idle requests on %s", len(claimed), s.stream)
		}
		if next == "0-0" || next == "" {
			return
		}
		start = next
	}
}

func (s *RedisSource) toMessages(ctx context.Context, entries []redis.XMessage) ([]Message, error) {
	var messages []Message
	for _, entry := range entries {
		req := parseRequest(entry.Values)
		if req.Term == "" {
			logger.Warn("Skipping request %s without a search term", entry.ID)
			if err := s.Ack(ctx, entry.ID); err != nil {
				return messages, err
			}
			continue
		}
		messages = append(messages, Message{ID: entry.ID, Request: req})
	}
	return messages, nil
}

// Ack acknowledges a handled entry
func (s *RedisSource) Ack(ctx context.Context, id string) error {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		return fmt.Errorf("xack %s %s: %w", s.stream, id, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSource) Close() error {
	return s.client.Close()
}

// parseRequest maps stream fields to a request, generating an id when missing
func parseRequest(values map[string]interface{}) finder.Request {
	field := func(key string) string {
		if v, ok := values[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	req := finder.Request{
		ID:     field(FieldID),
		Term:   field(FieldTerm),
		Source: strings.ToLower(field(FieldSource)),
		Region: field(FieldRegion),
		ChatID: field(FieldChatID),
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req
}
