package queue

import (
	"context"

	"github.com/sevasetu/token-queue/internal/model"
)

// View is the live state of one queue as rendered to display boards and
// officer consoles: the token at the counter (nil when none) and the
// waiting list in serve order.
type View struct {
	Serving      *model.Token  `json:"serving"`
	Waiting      []model.Token `json:"waiting"`
	TotalWaiting int           `json:"total_waiting"`
}

// ViewBuilder produces queue views.  It is a read-only projection over
// the store and never mutates anything, so polling clients may call it
// concurrently and as often as they like.
type ViewBuilder struct {
	store TokenStore
}

// NewViewBuilder constructs a ViewBuilder over the given store.
func NewViewBuilder(store TokenStore) *ViewBuilder {
	if store == nil {
		panic("nil store passed to NewViewBuilder")
	}
	return &ViewBuilder{store: store}
}

// Build returns the current view for the key.  The waiting list is
// sorted with the same comparator ServeNext uses, so the first entry is
// always the token that would be called next.
func (b *ViewBuilder) Build(ctx context.Context, key QueueKey) (*View, error) {
	serving, err := b.store.FindServing(ctx, key)
	if err != nil {
		return nil, err
	}
	waiting, err := b.store.FindWaiting(ctx, key)
	if err != nil {
		return nil, err
	}
	SortWaiting(waiting)
	if waiting == nil {
		waiting = []model.Token{}
	}
	return &View{
		Serving:      serving,
		Waiting:      waiting,
		TotalWaiting: len(waiting),
	}, nil
}
