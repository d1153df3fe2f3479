package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart"
)

func toggle(t *testing.T) *actorchart.Definition {
	t.Helper()
	def, err := actorchart.NewMachineBuilder("toggle", "a").
		State("a").Transition("FLIP", "b").
		State("b").Transition("FLIP", "a").
		After(10*time.Millisecond, actorchart.TransitionConfig{Target: "c"}).
		State("c").
		Done().
		Build()
	require.NoError(t, err)
	return def
}

func TestAdapters(t *testing.T) {
	for _, adapter := range Adapters() {
		t.Run(adapter.Name(), func(t *testing.T) {
			a, err := adapter.Start(toggle(t), Quiet(), actorchart.WithID("toggle-1"))
			require.NoError(t, err)
			defer a.Stop()

			assert.Equal(t, "toggle-1", a.ID())
			assert.Equal(t, "a", a.Snapshot().State)

			rec := Record(a)
			defer rec.Close()

			require.NoError(t, a.Send(actorchart.NewEvent("FLIP", nil)))
			require.NoError(t, a.Send(actorchart.NewEvent("FLIP", nil)))
			require.NoError(t, a.Send(actorchart.NewEvent("FLIP", nil)))
			require.NoError(t, WaitForState(a, "c", time.Second))

			assert.Equal(t, []string{"b", "a", "b", "c"}, rec.States())
			assert.Len(t, rec.Snapshots(), 4)
		})
	}
}

func TestWaitForStateTimeout(t *testing.T) {
	a, err := FreshAdapter{}.Start(toggle(t), Quiet())
	require.NoError(t, err)
	defer a.Stop()

	err = WaitForState(a, "c", 20*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `still in "a"`)
}

func TestRecorderClose(t *testing.T) {
	a, err := FreshAdapter{}.Start(toggle(t), Quiet())
	require.NoError(t, err)
	defer a.Stop()

	rec := Record(a)
	require.NoError(t, a.Send(actorchart.NewEvent("FLIP", nil)))
	rec.Close()
	require.NoError(t, a.Send(actorchart.NewEvent("FLIP", nil)))

	assert.Equal(t, []string{"b"}, rec.States())
}
