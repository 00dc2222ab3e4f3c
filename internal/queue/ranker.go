package queue

import (
	"sort"

	"github.com/sevasetu/token-queue/internal/model"
)

// priorityBucket maps a priority class to its coarse ordering bucket.
// The three privileged classes share one bucket above NONE; the schema
// carries no inter-class precedence, only the numeric priority rank.
func priorityBucket(p model.PriorityType) int {
	if p.Privileged() {
		return 0
	}
	return 1
}

// Less reports whether token a is served before token b.  The ordering
// is a strict total order over distinct tokens:
//
//  1. privileged bucket before NONE,
//  2. lower PriorityRank first within a bucket,
//  3. earlier CreatedAt first (first booked, first served),
//  4. lower ID first, so two tokens never compare equal.
//
// Less is pure: it reads only stored fields and has no side effects.
// Both "serve next" selection and waiting-list rendering use it, so the
// displayed order always matches what the controller will pick.
func Less(a, b *model.Token) bool {
	ab, bb := priorityBucket(a.PriorityType), priorityBucket(b.PriorityType)
	if ab != bb {
		return ab < bb
	}
	if a.PriorityRank != b.PriorityRank {
		return a.PriorityRank < b.PriorityRank
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortWaiting orders a waiting list in place by Less.
func SortWaiting(tokens []model.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		return Less(&tokens[i], &tokens[j])
	})
}
