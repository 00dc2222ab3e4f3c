// Package queue implements the token queue engine: the priority ranker,
// the serve/complete/skip/recall state machine, the live queue view and
// the status rollups.  All shared state lives behind the TokenStore
// interface; the engine itself is stateless and safe for any number of
// concurrent callers.
package queue

import (
	"context"
	"time"

	"github.com/sevasetu/token-queue/internal/model"
)

// QueueKey identifies one logical queue: the tokens of a service within
// a department on a single calendar date.  A zero DepartmentRef widens
// store reads to every department offering the service; the controller
// only ever operates on fully qualified keys.
type QueueKey struct {
	DepartmentRef uint64
	ServiceRef    uint64
	Date          string
}

// StatsFilter narrows a status rollup.  Zero values mean "any": the
// whole system, one department, or one department+service+date.
type StatsFilter struct {
	DepartmentRef uint64
	ServiceRef    uint64
	Date          string
}

// TokenStore is the durable record of every token and the single source
// of truth for queue state.  After a token exists the engine mutates it
// only through ServeTransition and Transition; both must be atomic
// compare-and-sets on the token's status so that concurrent controller
// instances stay consistent without any other coordination.
type TokenStore interface {
	// Create inserts a new token.  It returns ErrDuplicateToken
	// when (department, date, slot, number) collides with an existing row.
	Create(ctx context.Context, t *model.Token) error

	// GetByID returns the token or ErrTokenNotFound.
	GetByID(ctx context.Context, id uint64) (*model.Token, error)

	// FindWaiting returns the WAITING tokens for the key in unspecified
	// order; callers sort with the ranker.
	FindWaiting(ctx context.Context, key QueueKey) ([]model.Token, error)

	// FindServing returns the SERVING token for the key, or nil when no
	// token is being served.
	FindServing(ctx context.Context, key QueueKey) (*model.Token, error)

	// FindSkipped returns the SKIPPED tokens for the key.
	FindSkipped(ctx context.Context, key QueueKey) ([]model.Token, error)

	// ServeTransition moves the token from WAITING to SERVING, but only
	// while no token is SERVING for the key.  The serving-check and the
	// status flip are one atomic step; that single step is what keeps
	// two racing callers from both admitting a token, no matter how
	// their reads interleave.  It returns ErrAlreadyServing when the key
	// has a serving token, ErrStatusConflict when the token is not
	// WAITING, and ErrTokenNotFound when it does not exist.  Callers
	// always pass a fully qualified key.
	ServeTransition(ctx context.Context, key QueueKey, id uint64) (*model.Token, error)

	// Transition atomically moves the token from expected to next,
	// setting completed_at to completedAt (clearing it when nil).  It
	// returns the updated token, ErrTokenNotFound when no such
	// token exists, or ErrStatusConflict when the current
	// status is not expected.
	Transition(ctx context.Context, id uint64, expected, next model.TokenStatus, completedAt *time.Time) (*model.Token, error)

	// CountByStatus returns token counts grouped by status for the filter.
	CountByStatus(ctx context.Context, f StatsFilter) (map[model.TokenStatus]int, error)
}
