package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart/internal/primitives"
)

func TestScheduler(t *testing.T) {
	s := newScheduler()
	defer s.close()

	fired := make(chan [2]string, 4)
	fire := func(id, token string) { fired <- [2]string{id, token} }

	s.schedule("a", primitives.DelayConfig{ID: "t1", Delay: time.Hour}, fire)
	s.schedule("a", primitives.DelayConfig{ID: "t2", Delay: time.Hour, Persistent: true}, fire)
	s.schedule("b", primitives.DelayConfig{ID: "t3", Delay: time.Hour}, fire)
	require.Len(t, s.pending(), 3)

	cancelled := s.cancelOwned("a")
	require.Len(t, cancelled, 1, "persistent delays survive their owner")
	assert.Equal(t, "t1", cancelled[0].delay.ID)
	assert.False(t, s.cancel("t1"))
	assert.True(t, s.cancel("t3"))
	assert.False(t, s.cancel("nonexistent"))

	pending := s.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "t2", pending[0].ID)
	assert.True(t, pending[0].Persistent)
}

func TestSchedulerRescheduleReplacesToken(t *testing.T) {
	s := newScheduler()
	defer s.close()

	fired := make(chan [2]string, 4)
	fire := func(id, token string) { fired <- [2]string{id, token} }

	s.schedule("a", primitives.DelayConfig{ID: "t", Delay: 0}, fire)
	first := <-fired
	s.schedule("a", primitives.DelayConfig{ID: "t", Delay: 0}, fire)
	second := <-fired

	_, ok := s.claim(first[0], first[1])
	assert.False(t, ok, "a stale fire is not claimable")
	_, ok = s.claim(second[0], second[1])
	assert.True(t, ok)
	_, ok = s.claim(second[0], second[1])
	assert.False(t, ok, "a fire is claimed once")
}

func TestSchedulerRearmKeepsDeadline(t *testing.T) {
	s := newScheduler()
	defer s.close()

	fired := make(chan string, 4)
	fire := func(id, _ string) { fired <- id }

	s.schedule("a", primitives.DelayConfig{ID: "t", Delay: time.Hour}, fire)
	s.schedule("a", primitives.DelayConfig{ID: "gone", Delay: 0}, fire)
	assert.Equal(t, "gone", <-fired)
	deadline := s.pending()[1].Deadline

	cancelled := s.cancelOwned("a")
	require.Len(t, cancelled, 2)
	s.rearm(cancelled[1:], fire)

	pending := s.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "t", pending[0].ID)
	assert.Equal(t, deadline, pending[0].Deadline)

	past := &timer{owner: "a", delay: primitives.DelayConfig{ID: "late", Delay: time.Hour}, deadline: time.Now().Add(-time.Second)}
	s.rearm([]*timer{past}, fire)
	select {
	case id := <-fired:
		assert.Equal(t, "late", id)
	case <-time.After(time.Second):
		t.Fatal("an overdue delay should fire at once")
	}
}

func TestSchedulerClose(t *testing.T) {
	s := newScheduler()
	var fired atomic.Int32
	fire := func(string, string) { fired.Add(1) }

	s.schedule("a", primitives.DelayConfig{ID: "p", Delay: 20 * time.Millisecond, Persistent: true}, fire)
	s.close()
	s.schedule("a", primitives.DelayConfig{ID: "late", Delay: 0}, fire)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Empty(t, s.pending())
}

func delayMachine(t *testing.T, configure func(a *primitives.StateBuilder)) *primitives.Definition {
	t.Helper()
	mb := primitives.NewMachineBuilder("delays", "a")
	configure(mb.State("a"))
	return mb.
		State("b").
		State("done").
		State("timeout").
		State("elsewhere").
		Done().
		MustBuild()
}

func TestDelayedTransitionFires(t *testing.T) {
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.AfterTable(map[time.Duration]primitives.TransitionConfig{50 * time.Millisecond: {Target: "done"}})
	})
	a := startActor(t, def)
	assert.Equal(t, "a", a.Snapshot().State, "not before the delay elapses")

	time.Sleep(70 * time.Millisecond)
	require.Eventually(t, inState(a, "done"), time.Second, 5*time.Millisecond)
	assert.Empty(t, a.PendingDelays())

	snap := a.Snapshot()
	require.NotNil(t, snap.Event)
	id, ok := snap.Event.DelayID()
	assert.True(t, ok)
	assert.Equal(t, primitives.GeneratedDelayID("a", 50*time.Millisecond), id)
}

func TestCancelByIDBeforeLeaving(t *testing.T) {
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.AfterTable(map[time.Duration]primitives.TransitionConfig{100 * time.Millisecond: {Target: "timeout", DelayID: "t"}})
		a.On("LEAVE", primitives.TransitionConfig{Target: "elsewhere", Actions: []primitives.Action{primitives.Cancel("t")}})
	})
	a := startActor(t, def)

	time.Sleep(30 * time.Millisecond)
	send(t, a, "LEAVE")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "elsewhere", a.Snapshot().State)
}

func TestCancelByIDWhileStaying(t *testing.T) {
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.AfterTable(map[time.Duration]primitives.TransitionConfig{50 * time.Millisecond: {Target: "timeout", DelayID: "t"}})
		a.On("STAY", primitives.TransitionConfig{Actions: []primitives.Action{primitives.Cancel("t")}})
	})
	a := startActor(t, def)

	send(t, a, "STAY")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "a", a.Snapshot().State)
	assert.Empty(t, a.PendingDelays())
}

func TestUnlabeledDelayIsCancelledOnExit(t *testing.T) {
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.After(100*time.Millisecond, primitives.TransitionConfig{Target: "timeout"})
		a.Transition("LEAVE", "elsewhere")
	})
	a := startActor(t, def)

	time.Sleep(30 * time.Millisecond)
	send(t, a, "LEAVE")
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, "elsewhere", a.Snapshot().State)
}

func TestRapidToggleNeverFiresStaleDelay(t *testing.T) {
	mb := primitives.NewMachineBuilder("toggle", "a")
	mb.State("a").
		After(100*time.Millisecond, primitives.TransitionConfig{Target: "timeout"}).
		Transition("TOGGLE", "b")
	mb.State("b").Transition("TOGGLE", "a")
	mb.State("timeout")
	a := startActor(t, mb.MustBuild())

	for range 21 {
		send(t, a, "TOGGLE")
		time.Sleep(time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, "b", a.Snapshot().State)
}

func TestPersistentDelayOutlivesState(t *testing.T) {
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.Delay(primitives.DelayConfig{
			ID:         "p",
			Delay:      100 * time.Millisecond,
			Transition: primitives.TransitionConfig{Target: "timeout"},
			Persistent: true,
		})
		a.Transition("GO", "b")
	})
	a := startActor(t, def)

	time.Sleep(30 * time.Millisecond)
	send(t, a, "GO")
	assert.Equal(t, "b", a.Snapshot().State)
	require.Len(t, a.PendingDelays(), 1)

	time.Sleep(100 * time.Millisecond)
	require.Eventually(t, inState(a, "timeout"), time.Second, 5*time.Millisecond)
}

func TestCancelOfUnknownIDIsNoop(t *testing.T) {
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.On("GO", primitives.TransitionConfig{Target: "b", Actions: []primitives.Action{
			primitives.CancelFunc(func(primitives.Context, primitives.Event) string { return "nonexistent" }),
		}})
	})
	rec := &recorder{}
	a := startActor(t, def, WithInspector(rec))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Send(primitives.NewEvent("GO", nil))
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancel of an unknown id blocked")
	}
	assert.Equal(t, "b", a.Snapshot().State)
	assert.Empty(t, rec.errors())
}

func TestStaticCancelOfUnarmedDelayIsNoop(t *testing.T) {
	def := primitives.NewMachineBuilder("m", "a").
		State("a").
		On("GO", primitives.TransitionConfig{Target: "b", Actions: []primitives.Action{primitives.Cancel("b-timeout")}}).
		State("b").
		Delay(primitives.DelayConfig{ID: "b-timeout", Delay: time.Hour, Transition: primitives.TransitionConfig{Target: "a"}}).
		Done().
		MustBuild()
	rec := &recorder{}
	a := startActor(t, def, WithInspector(rec))
	require.Empty(t, a.PendingDelays())

	send(t, a, "GO")
	assert.Equal(t, "b", a.Snapshot().State)
	assert.Empty(t, rec.errors())
	pending := a.PendingDelays()
	require.Len(t, pending, 1, "entry arms the delay after the cancel ran")
	assert.Equal(t, "b-timeout", pending[0].ID)
}

func TestStopCancelsPersistentDelaysAndActivities(t *testing.T) {
	var sent, running atomic.Int32
	def := delayMachine(t, func(a *primitives.StateBuilder) {
		a.Delay(primitives.DelayConfig{
			ID:         "p",
			Delay:      60 * time.Millisecond,
			Transition: primitives.TransitionConfig{Target: "timeout"},
			Persistent: true,
		})
		a.Activity("ticker", func(ctx context.Context, _ primitives.Context, _ primitives.Event, send func(primitives.Event)) error {
			running.Add(1)
			defer running.Add(-1)
			tick := time.NewTicker(5 * time.Millisecond)
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick.C:
					send(primitives.NewEvent("TICK", nil))
					sent.Add(1)
				}
			}
		})
	})
	a, err := Interpret(def, WithLogger(quietLogger()))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	a.Stop()
	assert.Zero(t, running.Load(), "activities have returned when Stop returns")
	afterStop := sent.Load()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, afterStop, sent.Load())
	assert.Equal(t, "a", a.Snapshot().State, "persistent delay never fires")
	assert.Empty(t, a.PendingDelays())
	assert.Empty(t, a.RunningActivities())
}
