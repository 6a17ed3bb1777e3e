package hub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/workflow"
)

type fakeSender struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (s *fakeSender) Send(_ context.Context, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func TestBroadcastReachesAllUserConnections(t *testing.T) {
	h := New(nil)
	phone := &fakeSender{}
	web := &fakeSender{}
	other := &fakeSender{}

	h.Register("user-1", phone)
	h.Register("user-1", web)
	h.Register("user-2", other)

	require.NoError(t, h.Broadcast(context.Background(), "user-1", "hello"))

	assert.Equal(t, 1, phone.count())
	assert.Equal(t, 1, web.count())
	assert.Equal(t, 0, other.count(), "other users must not receive the message")
}

func TestBroadcastWithoutConnections(t *testing.T) {
	h := New(nil)
	err := h.Broadcast(context.Background(), "nobody", "hello")
	assert.ErrorIs(t, err, ErrNoConnections)
}

func TestBroadcastSurvivesFailingConnection(t *testing.T) {
	h := New(nil)
	broken := &fakeSender{err: errors.New("connection reset")}
	healthy := &fakeSender{}

	h.Register("user-1", broken)
	h.Register("user-1", healthy)

	require.NoError(t, h.Broadcast(context.Background(), "user-1", "hello"))
	assert.Equal(t, 1, healthy.count(), "healthy connection still receives the message")
}

func TestUnregister(t *testing.T) {
	h := New(nil)
	sender := &fakeSender{}

	handle := h.Register("user-1", sender)
	require.Equal(t, 1, h.ConnectionCount("user-1"))

	h.Unregister(handle)
	assert.Equal(t, 0, h.ConnectionCount("user-1"))
	assert.ErrorIs(t, h.Broadcast(context.Background(), "user-1", "hello"), ErrNoConnections)

	// Double unregister and nil handles are no-ops.
	h.Unregister(handle)
	h.Unregister(nil)
}

func TestEmitterDeliversWorkflowMessages(t *testing.T) {
	h := New(nil)
	sender := &fakeSender{}
	h.Register("user-1", sender)

	emitter := h.Emitter("user-1")
	msg := workflow.Message{
		Action:         "get_crop_recommendation",
		Event:          workflow.EventStepCompleted,
		WorkflowID:     "wf-1",
		WorkflowStatus: string(workflow.StatusRunning),
	}
	require.NoError(t, emitter.Emit(context.Background(), msg))

	require.Equal(t, 1, sender.count())
	got, ok := sender.payloads[0].(workflow.Message)
	require.True(t, ok)
	assert.Equal(t, "wf-1", got.WorkflowID)
}

func TestConcurrentRegisterBroadcast(t *testing.T) {
	h := New(nil)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			handle := h.Register("user-1", &fakeSender{})
			h.Unregister(handle)
		}()
		go func() {
			defer wg.Done()
			_ = h.Broadcast(context.Background(), "user-1", "ping")
		}()
	}
	wg.Wait()
}
