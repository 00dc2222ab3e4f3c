package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
)

func TestViewBuilder_OrdersWaitingAndExposesServing(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	t2 := seedToken(t, store, 2, model.PriorityDifferentlyAbled, 0, time.Minute)
	t3 := seedToken(t, store, 3, model.PriorityNone, 0, 2*time.Minute)

	served, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, t2.ID, served.ID)

	view, err := queue.NewViewBuilder(store).Build(context.Background(), testKey)
	require.NoError(t, err)
	require.NotNil(t, view.Serving)
	require.Equal(t, t2.ID, view.Serving.ID)
	require.Equal(t, 2, view.TotalWaiting)
	require.Equal(t, t1.ID, view.Waiting[0].ID)
	require.Equal(t, t3.ID, view.Waiting[1].ID)
}

func TestViewBuilder_EmptyQueueRendersCleanly(t *testing.T) {
	_, store := newEngine()

	view, err := queue.NewViewBuilder(store).Build(context.Background(), testKey)
	require.NoError(t, err)
	require.Nil(t, view.Serving)
	require.NotNil(t, view.Waiting, "waiting must encode as [] not null")
	require.Empty(t, view.Waiting)
	require.Zero(t, view.TotalWaiting)
}

// Omitting the department widens the view to every department offering
// the service.
func TestViewBuilder_WideKeySpansDepartments(t *testing.T) {
	_, store := newEngine()
	seedToken(t, store, 1, model.PriorityNone, 0, 0)

	other := model.Token{
		BookingRef:    2001,
		DepartmentRef: 2,
		ServiceRef:    testKey.ServiceRef,
		Date:          testKey.Date,
		SlotTime:      "09:00-09:30",
		TokenNumber:   1,
		PriorityType:  model.PriorityNone,
		Status:        model.StatusWaiting,
		CreatedAt:     time.Date(2025, 3, 10, 8, 1, 0, 0, time.UTC),
	}
	require.NoError(t, store.Create(context.Background(), &other))

	wide := queue.QueueKey{ServiceRef: testKey.ServiceRef, Date: testKey.Date}
	view, err := queue.NewViewBuilder(store).Build(context.Background(), wide)
	require.NoError(t, err)
	require.Equal(t, 2, view.TotalWaiting)
}
