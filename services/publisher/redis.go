package publisher

import (
	"context"
	"encoding/base64"
	"math/rand/v2"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dealmungchi/bestdeal/config"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// RedisPublisher implements Publisher on sharded Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
	log             *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
		log:             logger.ForPublisher(),
	}
}

// NewFromConfig creates a publisher for the configured report streams
func NewFromConfig(cfg *config.Config) *RedisPublisher {
	return NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisReportStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return errors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// Streams returns every stream name this publisher writes to.
// With a stream count of 10 they are prefix:0 through prefix:9.
func (p *RedisPublisher) Streams() []string {
	streams := make([]string, p.streamCount)
	for i := range streams {
		streams[i] = p.streamPrefix + ":" + strconv.Itoa(i)
	}
	return streams
}

// Publish publishes a message to a random report stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)
	stream := p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
	if err != nil {
		p.log.Error().Err(err).Str("stream", stream).Msg("Failed to publish report")
		return errors.NewPublisher(stream, "xadd failed", err)
	}

	p.log.Debug().Str("stream", stream).Int("bytes", len(message)).Msg("Report published")
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	for _, stream := range p.Streams() {
		if err := p.client.XTrimMaxLen(ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			p.log.Warn().Err(err).Str("stream", stream).Msg("Failed to trim stream")
			return errors.NewPublisher(stream, "xtrim failed", err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
