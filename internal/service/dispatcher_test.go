package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchEvent(server models.ServerRecord, recipients ...string) models.MatchEvent {
	return models.MatchEvent{Server: server, Identity: models.Identify(server), Recipients: recipients}
}

func TestDispatcher_PartialFailureIsolation(t *testing.T) {
	sink := newRecordingSink("blocked")
	dispatcher := NewDispatcher(sink, 4, testBus())

	results := dispatcher.Deliver(context.Background(), []models.MatchEvent{
		matchEvent(server1("Basra"), "alice", "blocked", "bob"),
	})

	require.Len(t, results, 3)
	assert.Equal(t, "alice", results[0].Subscriber)
	assert.True(t, results[0].Delivered())
	assert.Equal(t, "blocked", results[1].Subscriber)
	assert.ErrorIs(t, results[1].Err, errUnreachable)
	assert.Equal(t, "Server1", results[1].Server)
	assert.True(t, results[2].Delivered())

	assert.ElementsMatch(t, []delivery{
		{recipient: "alice", server: "Server1", mapName: "Basra"},
		{recipient: "bob", server: "Server1", mapName: "Basra"},
	}, sink.deliveries())
}

type batchSinkFunc func(ctx context.Context, event models.MatchEvent) error

func (f batchSinkFunc) DeliverBatch(ctx context.Context, event models.MatchEvent) error {
	return f(ctx, event)
}

func TestBatchDispatcher_OutcomeAppliesToEveryRecipient(t *testing.T) {
	var calls int32
	sink := batchSinkFunc(func(_ context.Context, event models.MatchEvent) error {
		atomic.AddInt32(&calls, 1)
		if event.Server.Map == "Valley" {
			return errors.New("channel gone")
		}
		return nil
	})
	dispatcher := NewBatchDispatcher(sink, 2, testBus())

	results := dispatcher.Deliver(context.Background(), []models.MatchEvent{
		matchEvent(server1("Basra"), "a", "b"),
		matchEvent(models.ServerRecord{Name: "Server2", Map: "Valley"}, "c", "d"),
	})

	require.Len(t, results, 4)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "one call per event")
	assert.True(t, results[0].Delivered())
	assert.True(t, results[1].Delivered())
	assert.False(t, results[2].Delivered())
	assert.False(t, results[3].Delivered())
	assert.Equal(t, "d", results[3].Subscriber)
}

type slowSink struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (s *slowSink) Deliver(_ context.Context, _ string, _ models.ServerRecord) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return nil
}

func TestDispatcher_BoundedFanOut(t *testing.T) {
	sink := &slowSink{}
	dispatcher := NewDispatcher(sink, 3, testBus())

	recipients := make([]string, 12)
	for i := range recipients {
		recipients[i] = string(rune('a' + i))
	}
	results := dispatcher.Deliver(context.Background(), []models.MatchEvent{matchEvent(server1("Basra"), recipients...)})

	assert.Len(t, results, 12)
	assert.LessOrEqual(t, sink.peak, 3)
}

type panickingSink struct{}

func (panickingSink) Deliver(context.Context, string, models.ServerRecord) error {
	panic("sink bug")
}

func TestDispatcher_SinkPanicBecomesFailure(t *testing.T) {
	dispatcher := NewDispatcher(panickingSink{}, 0, testBus())

	results := dispatcher.Deliver(context.Background(), []models.MatchEvent{matchEvent(server1("Basra"), "u")})

	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "sink panicked")
}

func TestDispatcher_NoEvents(t *testing.T) {
	dispatcher := NewDispatcher(newRecordingSink(), 2, testBus())
	assert.Empty(t, dispatcher.Deliver(context.Background(), nil))
}
