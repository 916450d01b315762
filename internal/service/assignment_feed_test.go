package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyflow-api/internal/models"
)

type memoryQuery struct {
	mu    sync.Mutex
	items []models.Assignment
}

func (q *memoryQuery) set(titles ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
	for _, title := range titles {
		q.items = append(q.items, models.Assignment{Title: title})
	}
}

func (q *memoryQuery) load(context.Context) ([]models.Assignment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Assignment, len(q.items))
	copy(out, q.items)
	return out, nil
}

func receive(t *testing.T, ch <-chan []models.Assignment) []models.Assignment {
	t.Helper()
	select {
	case value, ok := <-ch:
		require.True(t, ok, "channel closed")
		return value
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed emission")
		return nil
	}
}

func feedTitles(items []models.Assignment) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestAssignmentFeedEmitsImmediatelyAndOnNotify(t *testing.T) {
	feed := NewAssignmentFeed(nil, "", nil, zerolog.Nop())
	query := &memoryQuery{}
	query.set("first")

	updates, stop := feed.Observe(context.Background(), query.load)
	defer stop()

	require.Equal(t, []string{"first"}, feedTitles(receive(t, updates)))

	query.set("first", "second")
	feed.Notify(context.Background(), "created")
	require.Equal(t, []string{"first", "second"}, feedTitles(receive(t, updates)))
}

func TestAssignmentFeedDeliversLatestValueToSlowConsumers(t *testing.T) {
	feed := NewAssignmentFeed(nil, "", nil, zerolog.Nop())
	query := &memoryQuery{}
	query.set("v0")

	updates, stop := feed.Observe(context.Background(), query.load)
	defer stop()

	for _, version := range []string{"v1", "v2", "v3"} {
		query.set(version)
		feed.Notify(context.Background(), "updated")
	}

	require.Eventually(t, func() bool {
		select {
		case value := <-updates:
			return len(value) == 1 && value[0].Title == "v3"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAssignmentFeedStopClosesChannel(t *testing.T) {
	feed := NewAssignmentFeed(nil, "", nil, zerolog.Nop())
	query := &memoryQuery{}

	updates, stop := feed.Observe(context.Background(), query.load)
	receive(t, updates)
	stop()
	stop()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAssignmentFeedFansOutThroughRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	clientA := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewAssignmentFeed(clientA, "studyflow:test", nil, zerolog.Nop())
	nodeB := NewAssignmentFeed(clientB, "studyflow:test", nil, zerolog.Nop())

	var seenA, seenB int32
	nodeA.OnChange(func(context.Context) { atomic.AddInt32(&seenA, 1) })
	nodeB.OnChange(func(context.Context) { atomic.AddInt32(&seenB, 1) })

	nodeA.Start(ctx)
	nodeB.Start(ctx)

	var published int32
	require.Eventually(t, func() bool {
		nodeA.Notify(ctx, "created")
		atomic.AddInt32(&published, 1)
		return atomic.LoadInt32(&seenB) > 0
	}, 3*time.Second, 50*time.Millisecond)

	require.Equal(t, atomic.LoadInt32(&published), atomic.LoadInt32(&seenA), "a node must ignore its own events")
}
