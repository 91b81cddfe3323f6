package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type outboxRepository struct {
	store *Store
}

func NewOutboxRepository(store *Store) repository.OutboxRepository {
	return &outboxRepository{store: store}
}

func (r *outboxRepository) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pending := make([]*model.OutboxEvent, 0)
	for _, e := range r.store.outbox {
		if e.Status == model.OutboxStatusPending {
			pending = append(pending, e)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}

	out := make([]*model.OutboxEvent, 0, len(pending))
	for _, e := range pending {
		e.Status = model.OutboxStatusProcessing
		e.UpdatedAt = r.store.now()
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *outboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.store.now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.ErrorMessage = nil
	e.UpdatedAt = now
	return nil
}

func (r *outboxRepository) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, retry bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = model.OutboxStatusFailed
	if retry {
		e.Status = model.OutboxStatusPending
	}
	e.ErrorMessage = &errMsg
	e.RetryCount++
	e.UpdatedAt = r.store.now()
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for id, e := range r.store.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.store.outbox, id)
			deleted++
		}
	}
	return deleted, nil
}
