package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comalice/actorchart/internal/core"
)

var (
	ErrRedisURL      = errors.New("failed to parse redis connection string")
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")
)

// RedisConfig configures ConnectRedis.
type RedisConfig struct {
	URL            string
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

// ConnectRedis parses cfg.URL and pings the server, retrying up to
// cfg.RetryAttempts times with cfg.RetryInterval between attempts.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrRedisURL, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// RedisPersister stores checkpoints in Redis, one key per actor.
type RedisPersister struct {
	client redis.UniversalClient
	codec  Codec
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisPersister.
type RedisOption func(*RedisPersister)

// WithKeyPrefix sets the key prefix, "actorchart:checkpoint:" by default.
func WithKeyPrefix(prefix string) RedisOption {
	return func(p *RedisPersister) { p.prefix = prefix }
}

// WithTTL expires checkpoints that have not been saved for d. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(p *RedisPersister) { p.ttl = d }
}

// WithCodec sets the encoding of stored checkpoints, JSON by default.
func WithCodec(c Codec) RedisOption {
	return func(p *RedisPersister) { p.codec = c }
}

func NewRedisPersister(client redis.UniversalClient, opts ...RedisOption) *RedisPersister {
	p := &RedisPersister{
		client: client,
		codec:  JSON,
		prefix: "actorchart:checkpoint:",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisPersister) key(actorID string) string {
	return p.prefix + actorID
}

func (p *RedisPersister) Save(ctx context.Context, cp core.Checkpoint) error {
	data, err := encodeCheckpoint(p.codec, cp)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.key(cp.ActorID), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis save %q: %w", cp.ActorID, err)
	}
	return nil
}

func (p *RedisPersister) Load(ctx context.Context, actorID string) (core.Checkpoint, error) {
	data, err := p.client.Get(ctx, p.key(actorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Checkpoint{}, fmt.Errorf("actor %q: %w", actorID, core.ErrCheckpointNotFound)
	}
	if err != nil {
		return core.Checkpoint{}, fmt.Errorf("redis load %q: %w", actorID, err)
	}
	cp, err := decodeCheckpoint(p.codec, data)
	if err != nil {
		return core.Checkpoint{}, err
	}
	cp.ActorID = actorID
	return cp, nil
}

// Delete removes the checkpoint of actorID.
func (p *RedisPersister) Delete(ctx context.Context, actorID string) error {
	if err := p.client.Del(ctx, p.key(actorID)).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", actorID, err)
	}
	return nil
}

// Healthcheck pings the server.
func (p *RedisPersister) Healthcheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis healthcheck: %w", err)
	}
	return nil
}
