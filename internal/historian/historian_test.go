package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	batches   [][]models.RoomEvent
	abandoned []uuid.UUID
	fail      bool
}

func (f *fakeSink) SaveEvents(_ context.Context, events []models.RoomEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakeSink) MarkAbandoned(_ context.Context, gameID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, gameID)
	return nil
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func newTestService(t *testing.T, sink Sink, opts Options) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	logger, _ := test.NewNullLogger()
	return New(rdb, sink, opts, logger), rdb
}

func pushEvent(t *testing.T, rdb *redis.Client, queue string, ev models.RoomEvent) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), queue, data).Err())
}

func TestRunFlushesBySizeAndTimer(t *testing.T) {
	sink := &fakeSink{}
	svc, rdb := newTestService(t, sink, Options{Queue: "q", BatchSize: 2, FlushDelay: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		pushEvent(t, rdb, "q", models.RoomEvent{ID: uuid.New(), RoomCode: "ABC123", Type: models.EventGuess, Round: i + 1})
	}
	require.NoError(t, rdb.RPush(context.Background(), "q", "not json").Err())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.total() == 3 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("historian did not stop")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.batches[0], 2, "first batch flushes on size")
	assert.Equal(t, 1, sink.batches[0][0].Round)
}

func TestFlushFailureDropsBatch(t *testing.T) {
	sink := &fakeSink{fail: true}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	logger, hook := test.NewNullLogger()
	svc := New(rdb, sink, Options{}, logger)

	svc.batch = append(svc.batch, models.RoomEvent{ID: uuid.New()})
	svc.flush(context.Background())

	assert.Empty(t, svc.batch)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestSweepMarksIdleGamesAbandoned(t *testing.T) {
	sink := &fakeSink{}
	svc, _ := newTestService(t, sink, Options{Inactivity: time.Minute})
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	idle, finished, active := uuid.New(), uuid.New(), uuid.New()
	svc.track(models.RoomEvent{GameID: idle, Type: models.EventGameStarted})
	svc.track(models.RoomEvent{GameID: finished, Type: models.EventGameStarted})
	svc.track(models.RoomEvent{GameID: finished, Type: models.EventGameFinished})
	svc.track(models.RoomEvent{Type: models.EventPlayerJoined})

	svc.now = func() time.Time { return base.Add(50 * time.Second) }
	svc.track(models.RoomEvent{GameID: active, Type: models.EventGuess})

	svc.now = func() time.Time { return base.Add(90 * time.Second) }
	svc.sweepInactive(context.Background())

	assert.Equal(t, []uuid.UUID{idle}, sink.abandoned)
	assert.Contains(t, svc.lastActivity, active)
	assert.NotContains(t, svc.lastActivity, idle)
	assert.NotContains(t, svc.lastActivity, finished)
}
