package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart/internal/primitives"
)

func TestCheckpointRoundTrip(t *testing.T) {
	def := parentDefinition(pingerDefinition())
	reg := NewRegistry(0)
	p := startActor(t, def, WithID("parent-1"), WithPersister(reg))
	send(t, p, "POKE")
	require.Eventually(t, func() bool { return p.Snapshot().Context.Int("pongs") == 1 }, time.Second, 5*time.Millisecond)

	cp := p.Checkpoint()
	assert.Equal(t, "parent-1", cp.ActorID)
	assert.Equal(t, def.Fingerprint(), cp.Fingerprint)
	require.Contains(t, cp.Children, "kid")
	assert.Equal(t, "pinged", cp.Children["kid"].Snapshot.State)

	p.Stop()

	restored, err := Restore(def, cp, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(restored.Stop)

	assert.Equal(t, "parent-1", restored.ID())
	assert.Equal(t, "running", restored.Snapshot().State)
	assert.Equal(t, 1, restored.Snapshot().Context.Int("pongs"))
	assert.Equal(t, primitives.StatusActive, restored.Snapshot().Status)

	kid, ok := restored.Child("kid")
	require.True(t, ok, "statically spawned children are restored")
	assert.Equal(t, "pinged", kid.Snapshot().State)
	assert.Equal(t, []string{"pinged/heartbeat"}, kid.RunningActivities(), "restored states arm their activities")
	assert.Len(t, restored.Children(), 1, "entry actions do not run again")
}

func TestRestoreRejectsForeignCheckpoint(t *testing.T) {
	def := pingerDefinition()
	a := startActor(t, def)
	cp := a.Checkpoint()

	other := primitives.NewMachineBuilder("pinger", "idle").State("idle").Done().MustBuild()
	_, err := Restore(other, cp)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
}

func TestRestoreArmsDelays(t *testing.T) {
	def := primitives.NewMachineBuilder("m", "a").
		State("a").Transition("GO", "b").
		State("b").After(30*time.Millisecond, primitives.TransitionConfig{Target: "c"}).
		State("c").
		Done().
		MustBuild()

	a := startActor(t, def)
	send(t, a, "GO")
	cp := a.Checkpoint()
	a.Stop()

	restored, err := Restore(def, cp, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(restored.Stop)
	assert.Equal(t, "b", restored.Snapshot().State)
	require.Eventually(t, inState(restored, "c"), time.Second, 5*time.Millisecond)
}

func TestRegistryPersistsEveryStep(t *testing.T) {
	def := primitives.NewMachineBuilder("m", "a").
		State("a").Transition("GO", "b").
		State("b").Transition("GO", "a").
		Done().
		MustBuild()

	reg := NewRegistry(2)
	a := startActor(t, def, WithID("m-1"), WithPersister(reg))
	send(t, a, "GO")
	send(t, a, "GO")

	assert.Equal(t, []string{"m-1"}, reg.Actors())
	history := reg.History("m-1")
	require.Len(t, history, 2, "history is capped")
	assert.Equal(t, "b", history[0].Snapshot.State)
	assert.Equal(t, "a", history[1].Snapshot.State)

	latest, err := reg.Load(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "a", latest.Snapshot.State)

	_, err = reg.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestResume(t *testing.T) {
	def := primitives.NewMachineBuilder("m", "a").
		State("a").Transition("GO", "b").
		State("b").
		Done().
		MustBuild()
	reg := NewRegistry(0)
	ctx := context.Background()

	fresh, err := Resume(ctx, reg, def, "order-7", WithLogger(quietLogger()), WithPersister(reg))
	require.NoError(t, err)
	assert.Equal(t, "order-7", fresh.ID())
	require.NoError(t, fresh.Send(primitives.NewEvent("GO", nil)))
	fresh.Stop()

	resumed, err := Resume(ctx, reg, def, "order-7", WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(resumed.Stop)
	assert.Equal(t, "order-7", resumed.ID())
	assert.Equal(t, "b", resumed.Snapshot().State)
}
