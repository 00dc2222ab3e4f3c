package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sevasetu/token-queue/internal/model"
)

// Controller drives the token state machine.  It holds no queue state
// of its own: every decision is made against a fresh read of the store,
// and every mutation goes through the store's compare-and-set
// transitions.  That makes concurrent controller instances (or racing
// request handlers in one process) safe without locks: a loser of a
// race observes a status conflict and reconciles instead of proceeding.
type Controller struct {
	store TokenStore
	now   func() time.Time
}

// NewController constructs a Controller over the given store.
func NewController(store TokenStore) *Controller {
	if store == nil {
		panic("nil store passed to NewController")
	}
	return &Controller{store: store, now: time.Now}
}

// ServeNext selects the highest-priority WAITING token for the key and
// moves it to SERVING.  It fails with ErrAlreadyServing while another
// token is being served and with ErrEmptyQueue when nothing is waiting.
//
// The reads here only pick a candidate; admission itself is the store's
// queue-aware ServeTransition, which verifies no SERVING token exists
// for the key in the same atomic step that flips the status.  However
// callers interleave, at most one of them admits a token.
func (c *Controller) ServeNext(ctx context.Context, key QueueKey) (*model.Token, error) {
	serving, err := c.store.FindServing(ctx, key)
	if err != nil {
		return nil, err
	}
	if serving != nil {
		return nil, ErrAlreadyServing
	}

	waiting, err := c.store.FindWaiting(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(waiting) == 0 {
		return nil, ErrEmptyQueue
	}
	SortWaiting(waiting)

	for i := range waiting {
		tok, err := c.store.ServeTransition(ctx, key, waiting[i].ID)
		switch {
		case err == nil:
			return tok, nil
		case errors.Is(err, ErrStatusConflict), errors.Is(err, ErrTokenNotFound):
			// The candidate moved out of WAITING under us; try the next.
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrEmptyQueue
}

// ServeSpecific moves the named WAITING token to SERVING, bypassing the
// priority order (an officer calling a particular number).  The same
// at-most-one-SERVING rule applies: it fails with ErrAlreadyServing
// while the key has a serving token, and with ErrTokenNotWaiting when
// the target is in any other state.
func (c *Controller) ServeSpecific(ctx context.Context, tokenID uint64) (*model.Token, error) {
	target, err := c.store.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if target.Status != model.StatusWaiting {
		return nil, ErrTokenNotWaiting
	}

	key := QueueKey{DepartmentRef: target.DepartmentRef, ServiceRef: target.ServiceRef, Date: target.Date}
	tok, err := c.store.ServeTransition(ctx, key, tokenID)
	if errors.Is(err, ErrStatusConflict) {
		// Someone moved the token between our read and the write.
		return nil, ErrTokenNotWaiting
	}
	return tok, err
}

// Complete moves a SERVING token to COMPLETED and stamps completed_at.
// Any token not currently SERVING yields ErrNotServing and leaves the
// store untouched, so a retried request can never write a second
// completion; the caller resolves ErrNotServing by refreshing its view.
func (c *Controller) Complete(ctx context.Context, tokenID uint64) (*model.Token, error) {
	done := c.now().UTC()
	tok, err := c.store.Transition(ctx, tokenID, model.StatusServing, model.StatusCompleted, &done)
	if errors.Is(err, ErrStatusConflict) {
		return nil, ErrNotServing
	}
	return tok, err
}

// Skip moves a SERVING token to SKIPPED, leaving the key with no
// serving token; the next ServeNext resumes the queue.  The same
// ErrNotServing semantics as Complete apply.
func (c *Controller) Skip(ctx context.Context, tokenID uint64) (*model.Token, error) {
	tok, err := c.store.Transition(ctx, tokenID, model.StatusServing, model.StatusSkipped, nil)
	if errors.Is(err, ErrStatusConflict) {
		return nil, ErrNotServing
	}
	return tok, err
}

// RecallSkipped returns every SKIPPED token for the key to WAITING and
// reports how many were actually recalled.  Each token is its own
// compare-and-set; tokens that race away in the meantime are skipped
// rather than failing the batch.  Recalled tokens keep their original
// priority fields and re-enter ordering where those place them; a
// recall is not a jump to the front.
func (c *Controller) RecallSkipped(ctx context.Context, key QueueKey) (int, error) {
	skipped, err := c.store.FindSkipped(ctx, key)
	if err != nil {
		return 0, err
	}
	recalled := 0
	for i := range skipped {
		_, err := c.store.Transition(ctx, skipped[i].ID, model.StatusSkipped, model.StatusWaiting, nil)
		if err == nil {
			recalled++
			continue
		}
		if errors.Is(err, ErrStatusConflict) || errors.Is(err, ErrTokenNotFound) {
			continue
		}
		return recalled, err
	}
	return recalled, nil
}
