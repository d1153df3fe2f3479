package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/comalice/actorchart/internal/config"
	"github.com/comalice/actorchart/internal/core"
	"github.com/comalice/actorchart/internal/extensibility"
	"github.com/comalice/actorchart/internal/primitives"
	"github.com/comalice/actorchart/internal/production"
)

// DemoOptions holds the flags of the demo command.
type DemoOptions struct {
	ID      string
	Cycles  int
	Tick    time.Duration
	Timeout time.Duration
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a traffic light actor",
		Long: `Run a traffic light that cycles green, yellow and red on delayed
transitions. While red, a pedestrian button activity may request a walk
signal. After --cycles green phases the light switches off.

When ACTORCHART_SNAPSHOT_DIR or ACTORCHART_REDIS_URL is set the actor is
checkpointed after every step and resumed from the last checkpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()
			return runDemo(ctx, rootOpts, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "traffic-light-demo", "actor id, also the checkpoint key")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 3, "green phases before switching off")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 200*time.Millisecond, "time unit of the light's delays")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", time.Minute, "give up after this long")
	return cmd
}

// TrafficLight builds the demo machine. Green lasts three ticks, yellow one
// and red three. Each green phase counts a cycle.
func TrafficLight(tick time.Duration) *primitives.Definition {
	underLimit := primitives.SyncGuard{Name: "underLimit", Fn: func(c primitives.Context, _ primitives.Event) bool {
		return c.Int("cycles") < c.Int("limit")
	}}
	countCycle := primitives.Assign(func(c primitives.Context, _ primitives.Event) primitives.Context {
		return primitives.Context{"cycles": c.Int("cycles") + 1}
	})
	setLimit := primitives.Assign(func(c primitives.Context, evt primitives.Event) primitives.Context {
		n, ok := evt.Data.(int)
		if !ok {
			return nil
		}
		return primitives.Context{"limit": n}
	})
	resetCycles := primitives.Assign(func(primitives.Context, primitives.Event) primitives.Context {
		return primitives.Context{"cycles": 0}
	})
	walk := primitives.EmitFunc(func(c primitives.Context, _ primitives.Event) any {
		return fmt.Sprintf("walk (cycle %d)", c.Int("cycles"))
	})
	pedestrianButton := func(ctx context.Context, _ primitives.Context, _ primitives.Event, send func(primitives.Event)) error {
		select {
		case <-time.After(tick):
			send(primitives.NewEvent("PEDESTRIAN", nil))
		case <-ctx.Done():
			return nil
		}
		<-ctx.Done()
		return nil
	}

	return primitives.NewMachineBuilder("traffic-light", "green").
		WithContext(
			primitives.Context{"cycles": 0, "limit": 3},
			primitives.Shape{"cycles": primitives.KindInt, "limit": primitives.KindInt},
		).
		Global("SET_LIMIT", primitives.TransitionConfig{Actions: []primitives.Action{setLimit}}).
		Global("RESTART", primitives.TransitionConfig{Target: "green", Actions: []primitives.Action{resetCycles}}).
		State("green").
		Entry(countCycle).
		Transition("TIMER", "yellow").
		After(3*tick, primitives.TransitionConfig{Target: "yellow"}).
		State("yellow").
		Transition("TIMER", "red").
		After(tick, primitives.TransitionConfig{Target: "red"}).
		State("red").
		Activity("pedestrianButton", pedestrianButton).
		On("PEDESTRIAN", primitives.TransitionConfig{Actions: []primitives.Action{walk}}).
		Delay(primitives.DelayConfig{ID: "red-next", Delay: 3 * tick, Transition: primitives.TransitionConfig{Target: "green", Guard: underLimit}}).
		Delay(primitives.DelayConfig{ID: "red-last", Delay: 3 * tick, Transition: primitives.TransitionConfig{Target: "off", Guard: primitives.Not(underLimit)}}).
		State("off").
		Entry(primitives.Emit("done")).
		Done().
		MustBuild()
}

func runDemo(ctx context.Context, rootOpts *RootOptions, opts *DemoOptions, w io.Writer) error {
	if opts.Cycles < 1 {
		return fmt.Errorf("--cycles must be at least 1, got %d", opts.Cycles)
	}
	out := &syncWriter{w: w}
	log := rootOpts.Logger
	cfg := rootOpts.Config

	scope := core.NewScope(ctx)
	defer scope.Close()

	persister, closePersister, err := openPersister(ctx, cfg)
	if err != nil {
		return err
	}
	scope.Cleanup(closePersister)

	pub := production.NewChannelPublisher(16)
	scope.Cleanup(func() { _ = pub.Close() })

	def := TrafficLight(opts.Tick)
	actorOpts := []core.Option{
		core.WithLogger(log),
		core.WithInspector(extensibility.NewLoggingInspector(log, nil)),
		core.WithPublisher(pub),
		core.WithActivityTimeout(cfg.ActivityTimeout),
		core.WithMaxMicrosteps(cfg.MaxMicrosteps),
	}
	var actor *core.Actor
	if persister != nil {
		actorOpts = append(actorOpts, core.WithPersister(persister))
		actor, err = core.Resume(ctx, persister, def, opts.ID, actorOpts...)
	} else {
		actor, err = core.Interpret(def, append(actorOpts, core.WithID(opts.ID))...)
	}
	if err != nil {
		return fmt.Errorf("start demo: %w", err)
	}
	scope.Cleanup(actor.Stop)
	actor.OnError(func(err error) {
		fmt.Fprintf(out, "error: %v\n", err)
	})

	var mu sync.Mutex
	last := actor.Snapshot().State
	fmt.Fprintf(out, "%s starts in %s\n", actor.ID(), last)
	actor.Subscribe(func(s primitives.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.State != last {
			fmt.Fprintf(out, "%s -> %s\n", last, s.State)
			last = s.State
		}
	})

	if actor.Snapshot().State == "off" {
		if err := actor.Send(primitives.NewEvent("RESTART", nil)); err != nil {
			return err
		}
	}
	if err := actor.Send(primitives.NewEvent("SET_LIMIT", opts.Cycles)); err != nil {
		return err
	}

	for {
		select {
		case e, ok := <-pub.Emissions():
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "emit: %v\n", e.Value)
			if e.Value == "done" {
				fmt.Fprintf(out, "finished after %d cycles\n", actor.Snapshot().Context.Int("cycles"))
				return nil
			}
		case <-ctx.Done():
			fmt.Fprintf(out, "stopped in %s: %v\n", actor.Snapshot().State, context.Cause(ctx))
			return nil
		}
	}
}

// openPersister picks Redis over files; with neither configured the demo
// runs without checkpoints.
func openPersister(ctx context.Context, cfg config.Config) (core.Persister, func(), error) {
	codec, err := production.CodecFor(cfg.SnapshotFormat)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case cfg.Redis.URL != "":
		client, err := production.ConnectRedis(ctx, production.RedisConfig{
			URL:            cfg.Redis.URL,
			RetryAttempts:  cfg.Redis.RetryAttempts,
			RetryInterval:  cfg.Redis.RetryInterval,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return production.NewRedisPersister(client, production.WithCodec(codec)), func() { _ = client.Close() }, nil
	case cfg.SnapshotDir != "":
		p, err := production.NewFilePersister(cfg.SnapshotDir, codec)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	}
	return nil, func() {}, nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
