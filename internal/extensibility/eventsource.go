package extensibility

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/comalice/actorchart/internal/core"
	"github.com/comalice/actorchart/internal/primitives"
)

// ErrSourceClosed is returned by Send after Close.
var ErrSourceClosed = errors.New("event source closed")

// ChannelEventSource is an EventSource backed by a Go channel.
// Provides a simple way to feed external events into an actor.
type ChannelEventSource struct {
	ch     chan primitives.Event
	once   sync.Once
	closed chan struct{}
}

// NewChannelEventSource creates a ChannelEventSource with a buffer of size.
func NewChannelEventSource(size int) *ChannelEventSource {
	return &ChannelEventSource{
		ch:     make(chan primitives.Event, size),
		closed: make(chan struct{}),
	}
}

// Events returns the receive-only channel for events.
func (s *ChannelEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// Send queues evt, blocking while the buffer is full until ctx is done or
// the source is closed.
func (s *ChannelEventSource) Send(ctx context.Context, evt primitives.Event) error {
	select {
	case <-s.closed:
		return ErrSourceClosed
	default:
	}
	select {
	case s.ch <- evt:
		return nil
	case <-s.closed:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events. The events channel is left open so that a
// concurrent Send never panics; readers stop when the actor stops.
func (s *ChannelEventSource) Close() {
	s.once.Do(func() { close(s.closed) })
}

// TimerEventSource generates periodic events using time.Ticker.
// Useful for heartbeat-driven machines.
type TimerEventSource struct {
	ch        chan primitives.Event
	eventType string
	data      any
	ticker    *time.Ticker
	stop      chan struct{}
	once      sync.Once
}

// NewTimerEventSource creates a TimerEventSource that emits events every d duration.
func NewTimerEventSource(eventType string, data any, d time.Duration) *TimerEventSource {
	t := &TimerEventSource{
		ch:        make(chan primitives.Event, 10),
		eventType: eventType,
		data:      data,
		ticker:    time.NewTicker(d),
		stop:      make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerEventSource) run() {
	defer close(t.ch)
	defer t.ticker.Stop()
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- primitives.NewEvent(t.eventType, t.data):
			default:
				// drop if full
			}
		case <-t.stop:
			return
		}
	}
}

// Events returns the event channel. It is closed after Stop.
func (t *TimerEventSource) Events() <-chan primitives.Event {
	return t.ch
}

// Stop stops the ticker and closes the channel. It is idempotent.
func (t *TimerEventSource) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// EmissionSource turns the values an actor emits into events, so that one
// actor can drive another without either holding a reference to the other.
type EmissionSource struct {
	ch          chan primitives.Event
	unsubscribe func()
}

// NewEmissionSource subscribes to the emits of from. Each emitted value
// becomes an event of eventType carrying the value as data. Values are
// dropped while the buffer of size is full.
func NewEmissionSource(from *core.Actor, eventType string, size int) *EmissionSource {
	s := &EmissionSource{ch: make(chan primitives.Event, size)}
	s.unsubscribe = from.OnEmit(func(v any) {
		select {
		case s.ch <- primitives.NewEvent(eventType, v):
		default:
		}
	})
	return s
}

func (s *EmissionSource) Events() <-chan primitives.Event {
	return s.ch
}

// Close stops listening to the emitting actor.
func (s *EmissionSource) Close() {
	s.unsubscribe()
}
