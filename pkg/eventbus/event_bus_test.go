package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/channels/gochannel"
	"github.com/ragline/ragline/pkg/eventbus"
	"github.com/ragline/ragline/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestGenerateID(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)

	err := bus.Handle(events.ExecutionStartedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.ExecutionStarted{
		BaseEvent: events.BaseEvent{
			ID:          "evt-1",
			Type:        events.ExecutionStartedEvent,
			Timestamp:   time.Now().UTC(),
			WorkflowID:  "wf-1",
			ExecutionID: "exec-1",
		},
		SessionID: "session-1",
	}
	require.NoError(t, bus.Publish(ctx, "exec-1", sent))

	select {
	case event := <-received:
		started, ok := event.(*events.ExecutionStarted)
		require.True(t, ok)
		assert.Equal(t, "evt-1", started.ID)
		assert.Equal(t, "wf-1", started.WorkflowID)
		assert.Equal(t, "session-1", started.SessionID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribe_DispatchesByEventType(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		finished []string
	)

	err := bus.Handle(events.NodeFinishedEvent, func(_ context.Context, event any) error {
		node, ok := event.(*events.NodeFinished)
		if !ok {
			return nil
		}

		mu.Lock()
		finished = append(finished, node.NodeID)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	base := events.BaseEvent{ID: "evt", WorkflowID: "wf-1", ExecutionID: "exec-1"}

	// Only the node.finished handler is registered; the other event is
	// acknowledged and dropped.
	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionFinished{BaseEvent: base, NodeCount: 2}))
	require.NoError(t, bus.Publish(ctx, "exec-1", events.NodeFinished{BaseEvent: base, NodeID: "rag-1", NodeType: "rag"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(finished) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"rag-1"}, finished)
	mu.Unlock()
}
