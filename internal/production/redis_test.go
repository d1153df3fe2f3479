package production

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart/internal/core"
	"github.com/comalice/actorchart/internal/primitives"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), RedisConfig{
		URL:            "redis://" + mr.Addr() + "/0",
		RetryAttempts:  1,
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnectRedis(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{URL: "not a url"})
	assert.ErrorIs(t, err, ErrRedisURL)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = ConnectRedis(context.Background(), RedisConfig{
		URL:           "redis://" + addr,
		RetryAttempts: 2,
		RetryInterval: 10 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrRedisNotReady)
}

func TestRedisPersisterResume(t *testing.T) {
	mr, client := newRedis(t)
	p := NewRedisPersister(client, WithKeyPrefix("test:"))
	require.NoError(t, p.Healthcheck(context.Background()))
	def := counterDefinition()

	a, err := core.Interpret(def, core.WithID("counter-1"), core.WithLogger(quietLogger()), core.WithPersister(p))
	require.NoError(t, err)
	require.NoError(t, a.Send(primitives.NewEvent("INC", nil)))
	require.NoError(t, a.Send(primitives.NewEvent("INC", nil)))
	a.Stop()

	assert.True(t, mr.Exists("test:counter-1"))

	resumed, err := core.Resume(context.Background(), p, def, "counter-1", core.WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(resumed.Stop)
	assert.Equal(t, "idle", resumed.Snapshot().State)
	assert.Equal(t, 2, resumed.Snapshot().Context.Int("n"))

	require.NoError(t, p.Delete(context.Background(), "counter-1"))
	_, err = p.Load(context.Background(), "counter-1")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestRedisPersisterTTLAndCodec(t *testing.T) {
	mr, client := newRedis(t)
	p := NewRedisPersister(client, WithTTL(time.Minute), WithCodec(YAML))
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, core.Checkpoint{ActorID: "a", Snapshot: primitives.Snapshot{State: "idle"}}))
	assert.Equal(t, time.Minute, mr.TTL("actorchart:checkpoint:a"))

	cp, err := p.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "idle", cp.Snapshot.State)

	mr.FastForward(2 * time.Minute)
	_, err = p.Load(ctx, "a")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestRedisPublisher(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	sub := client.Subscribe(ctx, "emits")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	def := primitives.NewMachineBuilder("beacon", "idle").
		State("idle").On("PING", primitives.TransitionConfig{Actions: []primitives.Action{primitives.Emit("pong")}}).
		Done().
		MustBuild()
	a, err := core.InterpretScoped(t, def, core.WithID("b1"), core.WithLogger(quietLogger()),
		core.WithPublisher(NewRedisPublisher(client, "emits")))
	require.NoError(t, err)
	require.NoError(t, a.Send(primitives.NewEvent("PING", nil)))

	select {
	case msg := <-sub.Channel():
		var e core.Emission
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
		assert.Equal(t, "b1", e.ActorID)
		assert.Equal(t, "beacon", e.MachineID)
		assert.Equal(t, "idle", e.State)
		assert.Equal(t, "PING", e.Cause.Type)
		assert.Equal(t, "pong", e.Value)
	case <-time.After(time.Second):
		t.Fatal("no emission published")
	}
}
