package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
)

func TestStatsAggregator_Granularities(t *testing.T) {
	ctrl, store := newEngine()
	agg := queue.NewStatsAggregator(store)

	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	// A second department with its own token.
	other := model.Token{
		BookingRef:    3001,
		DepartmentRef: 2,
		ServiceRef:    testKey.ServiceRef,
		Date:          testKey.Date,
		SlotTime:      "10:00-10:30",
		TokenNumber:   1,
		PriorityType:  model.PriorityNone,
		Status:        model.StatusWaiting,
		CreatedAt:     time.Date(2025, 3, 10, 8, 5, 0, 0, time.UTC),
	}
	require.NoError(t, store.Create(context.Background(), &other))

	_, err := ctrl.ServeSpecific(context.Background(), t1.ID)
	require.NoError(t, err)
	_, err = ctrl.Complete(context.Background(), t1.ID)
	require.NoError(t, err)

	// Whole system.
	s, err := agg.Stats(context.Background(), queue.StatsFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, s.Waiting)
	require.Equal(t, 1, s.Completed)
	require.Equal(t, 3, s.Total)

	// One department.
	s, err = agg.Stats(context.Background(), queue.StatsFilter{DepartmentRef: 2})
	require.NoError(t, err)
	require.Equal(t, 1, s.Waiting)
	require.Equal(t, 1, s.Total)

	// Fully qualified queue.
	s, err = agg.Stats(context.Background(), testFilter)
	require.NoError(t, err)
	require.Equal(t, 1, s.Waiting)
	require.Equal(t, 1, s.Completed)
	require.Zero(t, s.Serving)
	require.Zero(t, s.Skipped)
	require.Equal(t, 2, s.Total)
}

// Stats are recomputed on every read; a transition is visible to the
// very next call.
func TestStatsAggregator_ReflectsLatestState(t *testing.T) {
	ctrl, store := newEngine()
	agg := queue.NewStatsAggregator(store)
	seedToken(t, store, 1, model.PriorityNone, 0, 0)

	s, err := agg.Stats(context.Background(), testFilter)
	require.NoError(t, err)
	require.Equal(t, 1, s.Waiting)
	require.Zero(t, s.Serving)

	_, err = ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)

	s, err = agg.Stats(context.Background(), testFilter)
	require.NoError(t, err)
	require.Zero(t, s.Waiting)
	require.Equal(t, 1, s.Serving)
}
