package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
)

// MemoryTokenRepo is an in-process TokenStore guarded by a single
// mutex.  It mirrors the MySQL repo's semantics, including the unique
// (department, date, slot, number) key and the compare-and-set
// transition, so the engine behaves identically on either driver.
// Selected with STORE_DRIVER=memory for local development; the engine
// tests run against it as well.
type MemoryTokenRepo struct {
	mu     sync.Mutex
	nextID uint64
	tokens map[uint64]*model.Token
	slots  map[slotKey]uint64
}

type slotKey struct {
	departmentRef uint64
	date          string
	slotTime      string
	tokenNumber   int
}

// NewMemoryTokenRepo returns an empty in-memory store.
func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{
		nextID: 1,
		tokens: make(map[uint64]*model.Token),
		slots:  make(map[slotKey]uint64),
	}
}

// Create inserts a token, assigning its id and created_at.
func (r *MemoryTokenRepo) Create(ctx context.Context, t *model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sk := slotKey{t.DepartmentRef, t.Date, t.SlotTime, t.TokenNumber}
	if _, exists := r.slots[sk]; exists {
		return queue.ErrDuplicateToken
	}

	stored := *t
	stored.ID = r.nextID
	r.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.tokens[stored.ID] = &stored
	r.slots[sk] = stored.ID
	*t = stored
	return nil
}

// GetByID returns a copy of the token or ErrTokenNotFound.
func (r *MemoryTokenRepo) GetByID(ctx context.Context, id uint64) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, queue.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

// FindWaiting returns the WAITING tokens for the key.
func (r *MemoryTokenRepo) FindWaiting(ctx context.Context, key queue.QueueKey) ([]model.Token, error) {
	return r.findByStatus(key, model.StatusWaiting), nil
}

// FindServing returns the SERVING token for the key, or nil.
func (r *MemoryTokenRepo) FindServing(ctx context.Context, key queue.QueueKey) (*model.Token, error) {
	serving := r.findByStatus(key, model.StatusServing)
	if len(serving) == 0 {
		return nil, nil
	}
	return &serving[0], nil
}

// FindSkipped returns the SKIPPED tokens for the key.
func (r *MemoryTokenRepo) FindSkipped(ctx context.Context, key queue.QueueKey) ([]model.Token, error) {
	return r.findByStatus(key, model.StatusSkipped), nil
}

func (r *MemoryTokenRepo) findByStatus(key queue.QueueKey, status model.TokenStatus) []model.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Token
	for _, t := range r.tokens {
		if key.DepartmentRef != 0 && t.DepartmentRef != key.DepartmentRef {
			continue
		}
		if t.ServiceRef == key.ServiceRef && t.Date == key.Date && t.Status == status {
			out = append(out, *t)
		}
	}
	return out
}

// ServeTransition admits the token to SERVING under the store mutex.
// The serving scan and the status flip happen inside the same critical
// section, so no interleaving of callers can leave two tokens SERVING
// for one key.
func (r *MemoryTokenRepo) ServeTransition(ctx context.Context, key queue.QueueKey, id uint64) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, queue.ErrTokenNotFound
	}
	if t.Status != model.StatusWaiting {
		return nil, queue.ErrStatusConflict
	}
	for _, other := range r.tokens {
		if other.Status == model.StatusServing &&
			other.DepartmentRef == key.DepartmentRef &&
			other.ServiceRef == key.ServiceRef &&
			other.Date == key.Date {
			return nil, queue.ErrAlreadyServing
		}
	}
	t.Status = model.StatusServing
	cp := *t
	return &cp, nil
}

// Transition performs the compare-and-set under the store mutex.
func (r *MemoryTokenRepo) Transition(ctx context.Context, id uint64, expected, next model.TokenStatus, completedAt *time.Time) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, queue.ErrTokenNotFound
	}
	if t.Status != expected {
		return nil, queue.ErrStatusConflict
	}
	t.Status = next
	if completedAt != nil {
		ts := completedAt.UTC()
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
	cp := *t
	return &cp, nil
}

// CountByStatus groups token counts by status under the filter.
func (r *MemoryTokenRepo) CountByStatus(ctx context.Context, f queue.StatsFilter) (map[model.TokenStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.TokenStatus]int)
	for _, t := range r.tokens {
		if f.DepartmentRef != 0 && t.DepartmentRef != f.DepartmentRef {
			continue
		}
		if f.ServiceRef != 0 && t.ServiceRef != f.ServiceRef {
			continue
		}
		if f.Date != "" && t.Date != f.Date {
			continue
		}
		counts[t.Status]++
	}
	return counts, nil
}
