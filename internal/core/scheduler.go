package core

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/actorchart/internal/primitives"
)

// timer is one armed delay. The token changes every time the id is
// scheduled, so a fire that raced a cancel or a re-schedule can be told
// apart from the live one.
type timer struct {
	delay    primitives.DelayConfig
	owner    string
	token    string
	deadline time.Time
	t        *time.Timer
}

// scheduler owns the delay timers of one actor.
type scheduler struct {
	mu     sync.Mutex
	timers map[string]*timer
	closed bool
}

func newScheduler() *scheduler {
	return &scheduler{timers: make(map[string]*timer)}
}

// schedule arms d on behalf of owner. Scheduling an id that is already armed
// replaces the previous timer. fire runs on the timer's goroutine.
func (s *scheduler) schedule(owner string, d primitives.DelayConfig, fire func(id, token string)) {
	s.scheduleAt(owner, d, time.Now().Add(d.Delay), fire)
}

func (s *scheduler) scheduleAt(owner string, d primitives.DelayConfig, deadline time.Time, fire func(id, token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[d.ID]; ok {
		old.t.Stop()
	}
	tm := &timer{
		delay:    d,
		owner:    owner,
		token:    uuid.NewString(),
		deadline: deadline,
	}
	id, token := d.ID, tm.token
	tm.t = time.AfterFunc(max(time.Until(deadline), 0), func() { fire(id, token) })
	s.timers[d.ID] = tm
}

// cancel removes the timer with id. Unknown ids are ignored.
func (s *scheduler) cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.timers[id]
	if !ok {
		return false
	}
	tm.t.Stop()
	delete(s.timers, id)
	return true
}

// cancelOwned removes every ephemeral timer armed on behalf of owner and
// returns them sorted by id. Persistent timers survive.
func (s *scheduler) cancelOwned(owner string) []*timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*timer
	for id, tm := range s.timers {
		if tm.owner != owner || tm.delay.Persistent {
			continue
		}
		tm.t.Stop()
		delete(s.timers, id)
		out = append(out, tm)
	}
	slices.SortFunc(out, func(a, b *timer) int { return strings.Compare(a.delay.ID, b.delay.ID) })
	return out
}

// rearm schedules cancelled timers again with their original deadlines. A
// deadline that has already passed fires at once.
func (s *scheduler) rearm(cancelled []*timer, fire func(id, token string)) {
	for _, tm := range cancelled {
		s.scheduleAt(tm.owner, tm.delay, tm.deadline, fire)
	}
}

// claim removes and returns the delay if token is still the live one for id.
func (s *scheduler) claim(id, token string) (primitives.DelayConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.timers[id]
	if !ok || tm.token != token {
		return primitives.DelayConfig{}, false
	}
	delete(s.timers, id)
	return tm.delay, true
}

// close stops every timer, persistent ones included. Later schedules are ignored.
func (s *scheduler) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, tm := range s.timers {
		tm.t.Stop()
	}
	clear(s.timers)
}

// PendingDelay describes an armed delay.
type PendingDelay struct {
	ID         string
	Owner      string
	Persistent bool
	Deadline   time.Time
}

func (s *scheduler) pending() []PendingDelay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingDelay, 0, len(s.timers))
	for _, id := range slices.Sorted(maps.Keys(s.timers)) {
		tm := s.timers[id]
		out = append(out, PendingDelay{ID: id, Owner: tm.owner, Persistent: tm.delay.Persistent, Deadline: tm.deadline})
	}
	return out
}
