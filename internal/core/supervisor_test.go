package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart/internal/primitives"
)

func TestSupervisorInterruptIsIdempotent(t *testing.T) {
	s := newSupervisor(50*time.Millisecond, quietLogger())
	var stops atomic.Int32
	run := func(ctx context.Context, _ primitives.Context, _ primitives.Event, _ func(primitives.Event)) error {
		<-ctx.Done()
		stops.Add(1)
		return ctx.Err()
	}
	report := func(err error) { t.Errorf("unexpected report: %v", err) }
	noSend := func(*activity, primitives.Event) {}

	s.start(context.Background(), "a", primitives.ActivityConfig{ID: "one", Run: run}, nil, primitives.Event{}, noSend, report)
	s.start(context.Background(), "a", primitives.ActivityConfig{ID: "two", Run: run}, nil, primitives.Event{}, noSend, report)
	s.start(context.Background(), "b", primitives.ActivityConfig{ID: "three", Run: run}, nil, primitives.Event{}, noSend, report)
	assert.Equal(t, []string{"a/one", "a/two", "b/three"}, s.ids())

	s.interrupt("a")
	s.interrupt("a")
	assert.Equal(t, int32(2), stops.Load())
	assert.Equal(t, []string{"b/three"}, s.ids())

	s.close()
	assert.Equal(t, int32(3), stops.Load())

	s.start(context.Background(), "c", primitives.ActivityConfig{ID: "late", Run: run}, nil, primitives.Event{}, noSend, report)
	assert.Empty(t, s.ids(), "a closed supervisor starts nothing")
}

func TestSupervisorReportsFailures(t *testing.T) {
	s := newSupervisor(0, quietLogger())
	defer s.close()

	reports := make(chan error, 2)
	report := func(err error) { reports <- err }
	noSend := func(*activity, primitives.Event) {}

	s.start(context.Background(), "a", primitives.ActivityConfig{ID: "fails", Run: func(context.Context, primitives.Context, primitives.Event, func(primitives.Event)) error {
		return errors.New("disk full")
	}}, nil, primitives.Event{}, noSend, report)
	s.start(context.Background(), "a", primitives.ActivityConfig{ID: "panics", Run: func(context.Context, primitives.Context, primitives.Event, func(primitives.Event)) error {
		panic("oops")
	}}, nil, primitives.Event{}, noSend, report)

	var got []*ActivityError
	for range 2 {
		select {
		case err := <-reports:
			var ae *ActivityError
			require.ErrorAs(t, err, &ae)
			got = append(got, ae)
		case <-time.After(time.Second):
			t.Fatal("no report")
		}
	}
	ids := []string{got[0].Activity, got[1].Activity}
	assert.ElementsMatch(t, []string{"fails", "panics"}, ids)
}

func TestActivitySendsReachOwningActor(t *testing.T) {
	def := primitives.NewMachineBuilder("m", "waiting").
		State("waiting").
		Activity("ready", func(ctx context.Context, c primitives.Context, evt primitives.Event, send func(primitives.Event)) error {
			send(primitives.NewEvent("READY", nil))
			<-ctx.Done()
			return nil
		}).
		Transition("READY", "ready").
		State("ready").
		Done().
		MustBuild()

	a := startActor(t, def)
	require.Eventually(t, inState(a, "ready"), time.Second, 5*time.Millisecond)
	assert.Empty(t, a.RunningActivities(), "leaving the state interrupts its activities")
}

func TestInterruptedActivityIsNotObserved(t *testing.T) {
	def := primitives.NewMachineBuilder("m", "a").
		WithContext(primitives.Context{"pings": 0}, primitives.Shape{"pings": primitives.KindInt}).
		State("a").
		Activity("stubborn", func(_ context.Context, _ primitives.Context, _ primitives.Event, send func(primitives.Event)) error {
			for range 20 {
				send(primitives.NewEvent("PING", nil))
				time.Sleep(3 * time.Millisecond)
			}
			return nil
		}).
		Transition("LEAVE", "b").
		State("b").
		On("PING", primitives.TransitionConfig{Actions: []primitives.Action{
			primitives.Assign(func(c primitives.Context, _ primitives.Event) primitives.Context {
				return primitives.Context{"pings": c.Int("pings") + 1}
			}),
		}}).
		Done().
		MustBuild()

	a := startActor(t, def, WithActivityTimeout(5*time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	send(t, a, "LEAVE")
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, "b", a.Snapshot().State)
	assert.Zero(t, a.Snapshot().Context.Int("pings"), "sends after interruption are dropped")
}

func TestSelfTransitionKeepsActivities(t *testing.T) {
	var starts atomic.Int32
	def := primitives.NewMachineBuilder("m", "a").
		State("a").
		Activity("worker", func(ctx context.Context, _ primitives.Context, _ primitives.Event, _ func(primitives.Event)) error {
			starts.Add(1)
			<-ctx.Done()
			return nil
		}).
		On("POKE", primitives.TransitionConfig{}).
		On("SAME", primitives.TransitionConfig{Target: "a"}).
		Done().
		MustBuild()

	a := startActor(t, def)
	send(t, a, "POKE")
	send(t, a, "SAME")
	require.Eventually(t, func() bool { return starts.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), starts.Load())
	assert.Equal(t, []string{"a/worker"}, a.RunningActivities())
}

func TestActivityErrorIsIsolated(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	def := primitives.NewMachineBuilder("m", "a").
		State("a").
		Activity("flaky", func(ctx context.Context, _ primitives.Context, _ primitives.Event, _ func(primitives.Event)) error {
			<-release
			return errors.New("connection reset")
		}).
		Activity("steady", func(ctx context.Context, _ primitives.Context, _ primitives.Event, _ func(primitives.Event)) error {
			<-ctx.Done()
			return nil
		}).
		Transition("GO", "b").
		State("b").
		Done().
		MustBuild()

	a := startActor(t, def, WithInspector(rec))
	close(release)
	require.Eventually(t, func() bool { return len(rec.errors()) == 1 }, time.Second, 5*time.Millisecond)

	var ae *ActivityError
	require.ErrorAs(t, rec.errors()[0], &ae)
	assert.Equal(t, "flaky", ae.Activity)
	assert.Equal(t, a.ID(), ae.ActorID)

	assert.Contains(t, a.RunningActivities(), "a/steady")
	send(t, a, "GO")
	assert.Equal(t, "b", a.Snapshot().State)
}
