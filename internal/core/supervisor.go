package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/actorchart/internal/primitives"
)

// DefaultActivityTimeout bounds how long an interrupt waits for an activity
// goroutine to return.
const DefaultActivityTimeout = 100 * time.Millisecond

// activity is the handle of one running activity goroutine.
type activity struct {
	id      string
	owner   string
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool
}

// interrupted reports whether events sent by this activity must be dropped.
func (h *activity) interrupted() bool {
	return h == nil || h.stopped.Load()
}

// supervisor starts and interrupts the activities of one actor.
type supervisor struct {
	mu      sync.Mutex
	running map[string][]*activity
	closed  bool
	timeout time.Duration
	logger  *slog.Logger
}

func newSupervisor(timeout time.Duration, logger *slog.Logger) *supervisor {
	if timeout <= 0 {
		timeout = DefaultActivityTimeout
	}
	return &supervisor{
		running: make(map[string][]*activity),
		timeout: timeout,
		logger:  logger,
	}
}

// start runs cfg in its own goroutine on behalf of owner. send is bound to
// the new handle; report receives an *ActivityError when Run fails.
func (s *supervisor) start(
	parent context.Context,
	owner string,
	cfg primitives.ActivityConfig,
	c primitives.Context,
	evt primitives.Event,
	send func(*activity, primitives.Event),
	report func(error),
) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	h := &activity{id: cfg.ID, owner: owner, cancel: cancel, done: make(chan struct{})}
	s.running[owner] = append(s.running[owner], h)
	s.mu.Unlock()

	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in activity", "activity", cfg.ID, "state", owner, "error", r, "stack", string(debug.Stack()))
				report(&ActivityError{State: owner, Activity: cfg.ID, Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		err := cfg.Run(ctx, c, evt, func(e primitives.Event) {
			if !h.interrupted() {
				send(h, e)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			report(&ActivityError{State: owner, Activity: cfg.ID, Err: err})
		}
	}()
}

// interrupt stops every activity started on behalf of owner and waits, up to
// the supervisor timeout, for their goroutines to return. It is idempotent.
func (s *supervisor) interrupt(owner string) {
	s.mu.Lock()
	handles := s.running[owner]
	delete(s.running, owner)
	s.mu.Unlock()
	s.stop(handles)
}

// close interrupts everything and refuses later starts.
func (s *supervisor) close() {
	s.mu.Lock()
	s.closed = true
	var handles []*activity
	for _, owner := range slices.Sorted(maps.Keys(s.running)) {
		handles = append(handles, s.running[owner]...)
	}
	clear(s.running)
	s.mu.Unlock()
	s.stop(handles)
}

func (s *supervisor) stop(handles []*activity) {
	if len(handles) == 0 {
		return
	}
	for _, h := range handles {
		if h.stopped.Swap(true) {
			continue
		}
		h.cancel()
	}
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	expired := false
	for _, h := range handles {
		if !expired {
			select {
			case <-h.done:
				continue
			case <-deadline.C:
				expired = true
			}
		}
		select {
		case <-h.done:
		default:
			s.logger.Warn("activity did not stop in time", "activity", h.id, "state", h.owner, "timeout", s.timeout)
		}
	}
}

// ids returns "<state>/<activity>" for every running activity.
func (s *supervisor) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for owner, handles := range s.running {
		for _, h := range handles {
			out = append(out, owner+"/"+h.id)
		}
	}
	slices.Sort(out)
	return out
}
