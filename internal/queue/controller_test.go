package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
	"github.com/sevasetu/token-queue/internal/repository"
)

var (
	testKey    = queue.QueueKey{DepartmentRef: 1, ServiceRef: 10, Date: "2025-03-10"}
	testFilter = queue.StatsFilter{DepartmentRef: 1, ServiceRef: 10, Date: "2025-03-10"}
)

func newEngine() (*queue.Controller, *repository.MemoryTokenRepo) {
	store := repository.NewMemoryTokenRepo()
	return queue.NewController(store), store
}

// seedToken creates a WAITING token for testKey.  The created offset
// spaces booking times apart so FIFO expectations are deterministic.
func seedToken(t *testing.T, store *repository.MemoryTokenRepo, number int, p model.PriorityType, rank int, createdOffset time.Duration) model.Token {
	t.Helper()
	tok := model.Token{
		BookingRef:    uint64(1000 + number),
		DepartmentRef: testKey.DepartmentRef,
		ServiceRef:    testKey.ServiceRef,
		Date:          testKey.Date,
		SlotTime:      "09:00-09:30",
		TokenNumber:   number,
		PriorityType:  p,
		PriorityRank:  rank,
		Status:        model.StatusWaiting,
		CreatedAt:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC).Add(createdOffset),
	}
	require.NoError(t, store.Create(context.Background(), &tok))
	return tok
}

func TestServeNext_PrivilegedBeforeEarlierBooking(t *testing.T) {
	ctrl, store := newEngine()
	seedToken(t, store, 1, model.PriorityNone, 0, 0)
	t2 := seedToken(t, store, 2, model.PrioritySeniorCitizen, 0, time.Minute)

	served, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, t2.ID, served.ID)
	require.Equal(t, model.StatusServing, served.Status)
}

func TestServeNext_FIFOAmongEqualTokens(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	served, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, t1.ID, served.ID)
}

func TestServeNext_RejectsWhileServing(t *testing.T) {
	ctrl, store := newEngine()
	seedToken(t, store, 1, model.PriorityNone, 0, 0)
	seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	_, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)

	_, err = ctrl.ServeNext(context.Background(), testKey)
	require.ErrorIs(t, err, queue.ErrAlreadyServing)

	// Still exactly one SERVING token for the key.
	counts, err := store.CountByStatus(context.Background(), testFilter)
	require.NoError(t, err)
	require.Equal(t, 1, counts[model.StatusServing])
}

func TestServeNext_EmptyQueue(t *testing.T) {
	ctrl, store := newEngine()

	_, err := ctrl.ServeNext(context.Background(), testKey)
	require.ErrorIs(t, err, queue.ErrEmptyQueue)

	view, err := queue.NewViewBuilder(store).Build(context.Background(), testKey)
	require.NoError(t, err)
	require.Nil(t, view.Serving)
	require.Zero(t, view.TotalWaiting)
}

// Concurrent serve-next calls on one key admit exactly one token.
func TestServeNext_ConcurrentCallsAdmitOne(t *testing.T) {
	ctrl, store := newEngine()
	for i := 1; i <= 10; i++ {
		seedToken(t, store, i, model.PriorityNone, 0, time.Duration(i)*time.Second)
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = ctrl.ServeNext(context.Background(), testKey)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, queue.ErrAlreadyServing)
		}
	}
	require.Equal(t, 1, won)

	counts, err := store.CountByStatus(context.Background(), testFilter)
	require.NoError(t, err)
	require.Equal(t, 1, counts[model.StatusServing])
	require.Equal(t, 9, counts[model.StatusWaiting])
}

// stalledWaitingStore blocks the first FindWaiting until released, so a
// second caller can run a full ServeNext inside the gap between one
// caller's serving-check and its waiting-list read.
type stalledWaitingStore struct {
	queue.TokenStore
	stalled chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stalledWaitingStore) FindWaiting(ctx context.Context, key queue.QueueKey) ([]model.Token, error) {
	var first bool
	s.once.Do(func() { first = true })
	if first {
		close(s.stalled)
		<-s.release
	}
	return s.TokenStore.FindWaiting(ctx, key)
}

// A caller whose reads are arbitrarily delayed must still not admit a
// second token after another caller has served one.
func TestServeNext_StalledCallerCannotAdmitSecondToken(t *testing.T) {
	base := repository.NewMemoryTokenRepo()
	seedToken(t, base, 1, model.PriorityNone, 0, 0)
	seedToken(t, base, 2, model.PriorityNone, 0, time.Minute)

	store := &stalledWaitingStore{
		TokenStore: base,
		stalled:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	ctrl := queue.NewController(store)

	errA := make(chan error, 1)
	go func() {
		_, err := ctrl.ServeNext(context.Background(), testKey)
		errA <- err
	}()
	<-store.stalled

	// The first caller has passed its serving-check and sits before its
	// waiting-list read; a second caller now serves a token.
	served, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, model.StatusServing, served.Status)

	close(store.release)
	require.ErrorIs(t, <-errA, queue.ErrAlreadyServing)

	counts, err := base.CountByStatus(context.Background(), testFilter)
	require.NoError(t, err)
	require.Equal(t, 1, counts[model.StatusServing])
	require.Equal(t, 1, counts[model.StatusWaiting])
}

func TestServeSpecific_BypassesPriorityOrder(t *testing.T) {
	ctrl, store := newEngine()
	seedToken(t, store, 1, model.PrioritySeniorCitizen, 0, 0)
	t2 := seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	served, err := ctrl.ServeSpecific(context.Background(), t2.ID)
	require.NoError(t, err)
	require.Equal(t, t2.ID, served.ID)
	require.Equal(t, model.StatusServing, served.Status)
}

func TestServeSpecific_Errors(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	t2 := seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	_, err := ctrl.ServeSpecific(context.Background(), 9999)
	require.ErrorIs(t, err, queue.ErrTokenNotFound)

	_, err = ctrl.ServeSpecific(context.Background(), t1.ID)
	require.NoError(t, err)

	// t1 occupies the counter now.
	_, err = ctrl.ServeSpecific(context.Background(), t2.ID)
	require.ErrorIs(t, err, queue.ErrAlreadyServing)

	// A token that is no longer WAITING cannot be served.
	_, err = ctrl.ServeSpecific(context.Background(), t1.ID)
	require.ErrorIs(t, err, queue.ErrTokenNotWaiting)
}

func TestComplete_StampsCompletedAtOnce(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)

	_, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)

	done, err := ctrl.Complete(context.Background(), t1.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	// A retried complete is rejected and must not touch the record.
	_, err = ctrl.Complete(context.Background(), t1.ID)
	require.ErrorIs(t, err, queue.ErrNotServing)

	after, err := store.GetByID(context.Background(), t1.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, after.Status)
	require.Equal(t, done.CompletedAt.UTC(), after.CompletedAt.UTC())
}

func TestSkip_LeavesCounterIdle(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	_, err := ctrl.ServeNext(context.Background(), testKey)
	require.NoError(t, err)

	skipped, err := ctrl.Skip(context.Background(), t1.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusSkipped, skipped.Status)
	require.Nil(t, skipped.CompletedAt)

	serving, err := store.FindServing(context.Background(), testKey)
	require.NoError(t, err)
	require.Nil(t, serving, "a skip must leave no serving token")

	// Complete on a non-serving token is a reconciliation signal.
	_, err = ctrl.Complete(context.Background(), t1.ID)
	require.ErrorIs(t, err, queue.ErrNotServing)
}

// A recalled token rejoins at its original priority position, not the
// front of the queue.
func TestRecallSkipped_RestoresOriginalPosition(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	t2 := seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	_, err := ctrl.ServeSpecific(context.Background(), t2.ID)
	require.NoError(t, err)
	_, err = ctrl.Skip(context.Background(), t2.ID)
	require.NoError(t, err)

	count, err := ctrl.RecallSkipped(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	view, err := queue.NewViewBuilder(store).Build(context.Background(), testKey)
	require.NoError(t, err)
	require.Len(t, view.Waiting, 2)
	require.Equal(t, t1.ID, view.Waiting[0].ID, "earlier booking stays ahead of the recalled token")
	require.Equal(t, t2.ID, view.Waiting[1].ID)
}

// The recall count reflects only tokens actually transitioned.
func TestRecallSkipped_CountsActualTransitions(t *testing.T) {
	ctrl, store := newEngine()
	t1 := seedToken(t, store, 1, model.PriorityNone, 0, 0)
	t2 := seedToken(t, store, 2, model.PriorityNone, 0, time.Minute)

	for _, tok := range []model.Token{t1, t2} {
		_, err := ctrl.ServeSpecific(context.Background(), tok.ID)
		require.NoError(t, err)
		_, err = ctrl.Skip(context.Background(), tok.ID)
		require.NoError(t, err)
	}

	// One of the skipped tokens races back to WAITING before the batch
	// reaches it.
	_, err := store.Transition(context.Background(), t1.ID, model.StatusSkipped, model.StatusWaiting, nil)
	require.NoError(t, err)

	count, err := ctrl.RecallSkipped(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	counts, err := store.CountByStatus(context.Background(), testFilter)
	require.NoError(t, err)
	require.Equal(t, 2, counts[model.StatusWaiting])
	require.Zero(t, counts[model.StatusSkipped])
}

func TestRecallSkipped_EmptyBatch(t *testing.T) {
	ctrl, _ := newEngine()

	count, err := ctrl.RecallSkipped(context.Background(), testKey)
	require.NoError(t, err)
	require.Zero(t, count)
}
