package queue

import (
	"context"

	"github.com/sevasetu/token-queue/internal/model"
)

// Stats holds token counts by status for a filter.  Total is the sum of
// the four states.
type Stats struct {
	Waiting   int `json:"waiting"`
	Serving   int `json:"serving"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// StatsAggregator computes status rollups.  It keeps no state of its
// own: every call recomputes from the store, so results always reflect
// the latest transitions and staleness is bounded only by how often
// clients poll.
type StatsAggregator struct {
	store TokenStore
}

// NewStatsAggregator constructs a StatsAggregator over the given store.
func NewStatsAggregator(store TokenStore) *StatsAggregator {
	if store == nil {
		panic("nil store passed to NewStatsAggregator")
	}
	return &StatsAggregator{store: store}
}

// Stats returns counts by status for the filter.  Zero-valued filter
// fields widen the rollup: the zero filter covers the whole system, a
// department alone covers every service and date in that department.
func (a *StatsAggregator) Stats(ctx context.Context, f StatsFilter) (*Stats, error) {
	counts, err := a.store.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		Waiting:   counts[model.StatusWaiting],
		Serving:   counts[model.StatusServing],
		Completed: counts[model.StatusCompleted],
		Skipped:   counts[model.StatusSkipped],
	}
	s.Total = s.Waiting + s.Serving + s.Completed + s.Skipped
	return s, nil
}
