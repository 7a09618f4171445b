package service

import (
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// changeTracker is the concrete implementation of ChangeTracker. It holds
// the pending-change map and the version ledger behind one mutex; at most
// one pending change exists per record id, successive mutations coalesce
// into it.
type changeTracker struct {
	mu      sync.Mutex
	pending map[string]models.PendingChange
	ledger  map[string]models.RecordVersion
	log     *logger.Logger

	now   func() time.Time
	merge func(dst *models.Record, src models.Record) error
}

func NewChangeTracker(log *logger.Logger) ChangeTracker {
	return &changeTracker{
		pending: make(map[string]models.PendingChange),
		ledger:  make(map[string]models.RecordVersion),
		log:     log,
		now:     time.Now,
		merge: func(dst *models.Record, src models.Record) error {
			return mergo.Merge(dst, src, mergo.WithOverride)
		},
	}
}

func (t *changeTracker) TrackCreate(rec models.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.pending[rec.ID] = models.PendingChange{
		ID:        rec.ID,
		Action:    models.ActionCreate,
		Data:      &rec,
		Timestamp: now,
	}
	t.ledger[rec.ID] = models.RecordVersion{
		LocalID:        rec.ID,
		SyncVersion:    0,
		LocalUpdatedAt: now,
		IsLocalOnly:    true,
	}
}

func (t *changeTracker) TrackUpdate(id string, partial models.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	partial.ID = id
	partial.UpdatedAt = now

	pch, ok := t.pending[id]
	switch {
	case ok && pch.Action != models.ActionDelete:
		// Coalesce into a copy of the existing entry: the old payload
		// may still be referenced by an in-flight merge snapshot. A
		// pending create absorbs the update and stays a create.
		data := models.Record{ID: id}
		if pch.Data != nil {
			data = *pch.Data
		}
		if err := t.merge(&data, partial); err != nil {
			// The timestamp advances either way, so the payload must be
			// the fresh edit: carrying the old one would let it win a
			// last-writer comparison it no longer deserves.
			t.log.Err(err).Str("id", id).Msg("failed to coalesce pending update")
			data = partial
		}
		pch.Data = &data
		pch.Timestamp = now
		t.pending[id] = pch
	default:
		// No entry yet, or the record was marked deleted and is being
		// edited again: the latest intent wins.
		t.pending[id] = models.PendingChange{
			ID:        id,
			Action:    models.ActionUpdate,
			Data:      &partial,
			Timestamp: now,
		}
	}

	t.touchLedger(id, now)
}

func (t *changeTracker) TrackDelete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pch, ok := t.pending[id]; ok && pch.Action == models.ActionCreate {
		// Created and deleted before ever syncing: the server never
		// learned of this id, so the change is erased entirely.
		delete(t.pending, id)
		delete(t.ledger, id)
		return
	}

	now := t.now()
	t.pending[id] = models.PendingChange{
		ID:        id,
		Action:    models.ActionDelete,
		Timestamp: now,
	}
	t.touchLedger(id, now)
}

func (t *changeTracker) Snapshot() (map[string]models.PendingChange, map[string]models.RecordVersion) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := make(map[string]models.PendingChange, len(t.pending))
	for id, pch := range t.pending {
		if pch.Data != nil {
			data := *pch.Data
			pch.Data = &data
		}
		pending[id] = pch
	}
	ledger := make(map[string]models.RecordVersion, len(t.ledger))
	for id, v := range t.ledger {
		ledger[id] = v
	}
	return pending, ledger
}

func (t *changeTracker) Replace(pending map[string]models.PendingChange, ledger map[string]models.RecordVersion) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = make(map[string]models.PendingChange, len(pending))
	for id, pch := range pending {
		t.pending[id] = pch
	}
	t.ledger = make(map[string]models.RecordVersion, len(ledger))
	for id, v := range ledger {
		t.ledger[id] = v
	}
}

func (t *changeTracker) RemoveOlder(ids []string, cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		if pch, ok := t.pending[id]; ok && !pch.Timestamp.After(cutoff) {
			delete(t.pending, id)
		}
	}
}

func (t *changeTracker) ApplyLedger(entries map[string]models.RecordVersion, removed []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, v := range entries {
		t.ledger[id] = v
	}
	for _, id := range removed {
		delete(t.ledger, id)
	}
}

func (t *changeTracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// touchLedger refreshes the local timestamp for id, creating the entry when
// the record predates the ledger.
func (t *changeTracker) touchLedger(id string, now time.Time) {
	v, ok := t.ledger[id]
	if !ok {
		v = models.RecordVersion{LocalID: id, IsLocalOnly: true}
	}
	v.LocalUpdatedAt = now
	t.ledger[id] = v
}
