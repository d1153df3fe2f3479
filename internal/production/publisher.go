package production

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/comalice/actorchart/internal/core"
)

// ChannelPublisher forwards emissions to a Go channel. Publish never blocks:
// when the channel is full the emission is dropped and counted.
type ChannelPublisher struct {
	mu      sync.RWMutex
	ch      chan core.Emission
	closed  bool
	dropped atomic.Int64
}

// NewChannelPublisher creates a ChannelPublisher with a buffer of size.
func NewChannelPublisher(size int) *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan core.Emission, size)}
}

// Emissions returns the channel emissions are delivered on. It is closed by Close.
func (p *ChannelPublisher) Emissions() <-chan core.Emission {
	return p.ch
}

func (p *ChannelPublisher) Publish(ctx context.Context, e core.Emission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}
	select {
	case p.ch <- e:
	default:
		p.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many emissions were dropped on a full channel.
func (p *ChannelPublisher) Dropped() int {
	return int(p.dropped.Load())
}

// Close closes the emissions channel. Later publishes are ignored.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// RedisPublisher publishes emissions on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	codec   Codec
}

// NewRedisPublisher publishes JSON encoded emissions on channel.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, codec: JSON}
}

func (p *RedisPublisher) Publish(ctx context.Context, e core.Emission) error {
	data, err := p.codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode emission: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}
