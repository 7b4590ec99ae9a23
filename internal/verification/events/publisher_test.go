package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/kyc/models"
)

type failingSink struct{}

func (failingSink) Write(context.Context, Event) error { return errors.New("broker down") }

// blockingSink holds every write until release is closed.
type blockingSink struct {
	release chan struct{}
	inner   *MemorySink
}

func (s *blockingSink) Write(ctx context.Context, e Event) error {
	<-s.release
	return s.inner.Write(ctx, e)
}

func testEvent() Event {
	return FromSubmission(TypeSubmissionCreated, &models.Submission{
		ID:      "sub-1",
		Owner:   "user-1",
		Variant: models.VariantVendor,
		Status:  models.StatusPending,
	})
}

func TestPublisher_SyncMode(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink)
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), testEvent()))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, TypeSubmissionCreated, events[0].Type)
	assert.Equal(t, "sub-1", events[0].SubmissionID)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_SyncModeSurfacesSinkError(t *testing.T) {
	pub := NewPublisher(failingSink{})
	err := pub.Emit(context.Background(), testEvent())
	assert.EqualError(t, err, "broker down")
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), testEvent()))
	}
	pub.Close()

	assert.Len(t, sink.Events(), 10, "all events should be drained on close")
}

func TestPublisher_AsyncBufferFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), inner: NewMemorySink()}
	pub := NewPublisher(sink, WithAsyncBuffer(1))

	// the worker picks up the first event and blocks on it; the second fills
	// the buffer
	require.NoError(t, pub.Emit(context.Background(), testEvent()))
	require.Eventually(t, func() bool {
		return pub.Emit(context.Background(), testEvent()) == nil
	}, time.Second, 5*time.Millisecond)

	err := pub.Emit(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrBufferFull)

	close(sink.release)
	pub.Close()
	assert.Len(t, sink.inner.Events(), 2)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink)

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	event := testEvent()
	event.Timestamp = at
	require.NoError(t, pub.Emit(context.Background(), event))

	assert.Equal(t, at, sink.Events()[0].Timestamp)
}

func TestPublisher_EmitAfterCloseWritesInline(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	require.NoError(t, pub.Emit(context.Background(), testEvent()))
	assert.Len(t, sink.Events(), 1)
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var pub *Publisher
	assert.NoError(t, pub.Emit(context.Background(), testEvent()))
	pub.Close()
}

func TestWorker_LogsAndContinuesOnFailure(t *testing.T) {
	inbox := make(chan Event, 2)
	inbox <- testEvent()
	inbox <- testEvent()
	close(inbox)

	w := NewWorker(failingSink{}, inbox, nil)
	assert.NoError(t, w.Run(context.Background()))
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(NewMemorySink(), make(chan Event), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		err = w.Run(ctx)
	}()
	cancel()
	wg.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}
