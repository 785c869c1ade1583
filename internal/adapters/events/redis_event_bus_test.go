package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	redisclient "github.com/zatekoja/clinicqueue/internal/infrastructure/clients/redis"
)

func setupBus(t *testing.T) providers.EventBus {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisEventBus(redisclient.Wrap(rdb))
	t.Cleanup(func() {
		_ = bus.Close()
		_ = rdb.Close()
	})
	return bus
}

func receive(t *testing.T, ch <-chan *entities.AssignmentEvent) *entities.AssignmentEvent {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.EventChannelAssignments)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.EventChannelAssignments)
	require.NoError(t, err)

	event := &entities.AssignmentEvent{
		ID:                   "evt-1",
		PatientID:            "pat-1",
		DoctorID:             "DOC-7",
		EstimatedWaitMinutes: 30,
		Message:              entities.AssignmentMessage("DOC-7", 30),
		Timestamp:            time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelAssignments, event))

	for _, ch := range []<-chan *entities.AssignmentEvent{first, second} {
		got := receive(t, ch)
		assert.Equal(t, "evt-1", got.ID)
		assert.Equal(t, "DOC-7", got.DoctorID)
		assert.Equal(t, 30, got.EstimatedWaitMinutes)
		assert.Equal(t, "Assigned to Dr. DOC-7. Estimated wait: 30 minutes", got.Message)
		assert.True(t, event.Timestamp.Equal(got.Timestamp))
	}
}

func TestRedisEventBus_ChannelIsolation(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc1, err := bus.Subscribe(ctx, providers.GetDoctorChannel("DOC-1"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, providers.GetDoctorChannel("DOC-2"), &entities.AssignmentEvent{ID: "other"}))
	require.NoError(t, bus.Publish(ctx, providers.GetDoctorChannel("DOC-1"), &entities.AssignmentEvent{ID: "mine"}))

	assert.Equal(t, "mine", receive(t, doc1).ID)
}

func TestRedisEventBus_ContextCancelClosesSubscriber(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, providers.EventChannelAssignments)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisEventBus_ResubscribeAfterLastSubscriberLeaves(t *testing.T) {
	bus := setupBus(t)
	impl := bus.(*RedisEventBus)
	channel := providers.GetDoctorChannel("DOC-3")

	subscribed := func() bool {
		impl.mu.RLock()
		defer impl.mu.RUnlock()
		_, ok := impl.subscriptions[channel]
		return ok
	}

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := bus.Subscribe(ctx, channel)
		require.NoError(t, err)
		cancel()
		require.Eventually(t, func() bool { return !subscribed() }, 2*time.Second, 5*time.Millisecond)

		next, cancelNext := context.WithCancel(context.Background())
		ch, err := bus.Subscribe(next, channel)
		require.NoError(t, err)

		// let the previous receiver finish unwinding
		time.Sleep(20 * time.Millisecond)
		require.True(t, subscribed(), "round %d: new subscription was torn down", i)

		require.NoError(t, bus.Publish(context.Background(), channel, &entities.AssignmentEvent{ID: "evt-resub", DoctorID: "DOC-3"}))
		assert.Equal(t, "evt-resub", receive(t, ch).ID)

		cancelNext()
		require.Eventually(t, func() bool { return !subscribed() }, 2*time.Second, 5*time.Millisecond)
	}
}

func TestRedisEventBus_UnsubscribeClosesSubscribers(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, providers.EventChannelAssignments)
	require.NoError(t, err)
	require.NoError(t, bus.Unsubscribe(ctx, providers.EventChannelAssignments))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not closed")
	}
}
