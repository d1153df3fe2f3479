package primitives

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineBuilder(t *testing.T) {
	def, err := NewMachineBuilder("light", "green").
		WithContext(Context{"cycles": 0}, Shape{"cycles": KindInt}).
		Global("RESET", TransitionConfig{Target: "green"}).
		State("green").
		After(time.Second, TransitionConfig{Target: "yellow"}).
		Transition("TIMER", "yellow").
		State("yellow").
		AfterTable(map[time.Duration]TransitionConfig{500 * time.Millisecond: {Target: "red", DelayID: "yellow-timeout"}}).
		State("red").
		Entry(Assign(func(c Context, _ Event) Context { return Context{"cycles": c.Int("cycles") + 1} })).
		Activity("camera", func(ctx context.Context, _ Context, _ Event, _ func(Event)) error {
			<-ctx.Done()
			return nil
		}).
		Transition("TIMER", "green").
		Done().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "light", def.ID())
	assert.Equal(t, "green", def.Initial())
	assert.Equal(t, []string{"green", "red", "yellow"}, def.StateIDs())
	assert.Equal(t, []string{"RESET"}, def.GlobalEvents())

	green, ok := def.State("green")
	require.True(t, ok)
	assert.Equal(t, []string{GeneratedDelayID("green", time.Second)}, green.DelayIDs())

	yellow, _ := def.State("yellow")
	assert.Equal(t, []string{"yellow-timeout"}, yellow.DelayIDs())

	red, _ := def.State("red")
	assert.Len(t, red.Entry, 1)
	assert.Len(t, red.Activities, 1)
}

func TestMachineBuilderReportsErrors(t *testing.T) {
	_, err := NewMachineBuilder("m", "a").
		State("a").Transition("GO", "nowhere").
		Done().
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	assert.Panics(t, func() {
		NewMachineBuilder("m", "missing").State("a").Done().MustBuild()
	})
}

func TestFingerprint(t *testing.T) {
	build := func(target string) *Definition {
		return NewMachineBuilder("m", "a").
			State("a").Transition("GO", target).
			State("b").
			State("c").
			Done().
			MustBuild()
	}

	assert.Equal(t, build("b").Fingerprint(), build("b").Fingerprint())
	assert.NotEqual(t, build("b").Fingerprint(), build("c").Fingerprint())

	withAction := NewMachineBuilder("m", "a").
		State("a").On("GO", TransitionConfig{Target: "b", Actions: []Action{Emit("x")}}).
		State("b").
		State("c").
		Done().
		MustBuild()
	assert.Equal(t, build("b").Fingerprint(), withAction.Fingerprint(), "behaviour is not part of the fingerprint")
}

func TestAfterTableOrder(t *testing.T) {
	delays := AfterTable(map[time.Duration]TransitionConfig{
		2 * time.Second:        {Target: "late"},
		100 * time.Millisecond: {Target: "early", DelayID: "early"},
	})
	require.Len(t, delays, 2)
	assert.Equal(t, 100*time.Millisecond, delays[0].Delay)
	assert.Equal(t, "early", delays[0].ID)
	assert.Equal(t, "", delays[1].ID)
}
