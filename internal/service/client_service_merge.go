package service

import (
	"context"
	"sort"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// mergeEngine is the concrete implementation of MergeEngine. It performs a
// purely in-memory reconciliation: one pass over the server changes, then
// one pass over the surviving pending changes. No storage layer or logger
// is needed because the operation is stateless and produces no side
// effects.
type mergeEngine struct{}

func NewMergeEngine() MergeEngine {
	return &mergeEngine{}
}

// Merge implements MergeEngine.
//
// Pass 1 walks the pulled server changes and resolves each against the
// matching local record and pending change. The server is authoritative
// wherever no local intent exists; where both sides changed, the later
// wall-clock timestamp wins and ties favor the server. Processing the
// server first guarantees a record is never pushed with intent the server
// has just overruled.
//
// Pass 2 walks the pending changes that survived pass 1 and sorts them
// into the outbound create, update and delete lists.
//
// ctx cancellation is checked at the start of each iteration so callers
// can abort early on large datasets.
func (e *mergeEngine) Merge(
	ctx context.Context,
	local []models.Record,
	serverChanges []models.ServerRecord,
	pending map[string]models.PendingChange,
	ledger map[string]models.RecordVersion,
) (models.MergeResult, error) {
	localIndex := make(map[string]models.Record, len(local))
	for _, rec := range local {
		localIndex[rec.ID] = rec
	}

	outPending := make(map[string]models.PendingChange, len(pending))
	for id, pch := range pending {
		outPending[id] = pch
	}
	outLedger := make(map[string]models.RecordVersion, len(ledger))
	for id, v := range ledger {
		outLedger[id] = v
	}

	// Fallback lookup for server changes whose client id is unknown
	// locally but whose server id is already linked in the ledger.
	byServerID := make(map[int64]string, len(ledger))
	for id, v := range ledger {
		if v.ServerID != nil {
			byServerID[*v.ServerID] = id
		}
	}

	var res models.MergeResult

	// ── Pass 1: server changes ──────────────────────────────────────────
	for _, sc := range serverChanges {
		if err := ctx.Err(); err != nil {
			return models.MergeResult{}, err
		}

		id := sc.ID
		if _, known := localIndex[id]; !known {
			if mapped, ok := byServerID[sc.ServerID]; ok {
				id = mapped
			}
		}

		pch, hasPending := outPending[id]
		_, hasLocal := localIndex[id]

		if sc.Deleted() {
			if hasPending && pch.Action == models.ActionUpdate {
				res.Conflicts = append(res.Conflicts, models.ConflictRecord{
					ID:         id,
					Local:      pch.Data,
					Server:     serverCopy(sc),
					Type:       models.ConflictUpdateDelete,
					ResolvedBy: models.ResolvedByServer,
				})
			}
			// The record is gone server-side; any surviving local
			// intent is void, deletes included (both sides agree).
			if hasPending {
				delete(outPending, id)
				res.Dropped = append(res.Dropped, id)
			}
			if hasLocal {
				delete(localIndex, id)
				res.Removed = append(res.Removed, id)
			}
			delete(outLedger, id)
			continue
		}

		switch {
		case !hasPending:
			// No local intent: the server copy is authoritative,
			// both for records never seen and for stale local
			// copies.
			e.adopt(id, sc, localIndex, outLedger, &res)

		case pch.Action == models.ActionDelete:
			// Deleted locally but updated server-side since: the
			// server wins and the record is restored.
			res.Conflicts = append(res.Conflicts, models.ConflictRecord{
				ID:         id,
				Server:     serverCopy(sc),
				Type:       models.ConflictDeleteUpdate,
				ResolvedBy: models.ResolvedByServer,
			})
			e.adopt(id, sc, localIndex, outLedger, &res)
			delete(outPending, id)
			res.Dropped = append(res.Dropped, id)

		default:
			// Updated on both sides: the later timestamp wins, ties
			// favor the server.
			localWins := pch.Timestamp.After(sc.UpdatedAt)
			conflict := models.ConflictRecord{
				ID:     id,
				Local:  pch.Data,
				Server: serverCopy(sc),
				Type:   models.ConflictUpdateUpdate,
			}

			if !localWins {
				conflict.ResolvedBy = models.ResolvedByServer
				res.Conflicts = append(res.Conflicts, conflict)
				e.adopt(id, sc, localIndex, outLedger, &res)
				delete(outPending, id)
				res.Dropped = append(res.Dropped, id)
				continue
			}

			conflict.ResolvedBy = models.ResolvedByLocal
			res.Conflicts = append(res.Conflicts, conflict)

			// The local copy and its pending change survive, but the
			// ledger advances to the server's version so the next
			// push carries a fresh optimistic-concurrency token.
			v := outLedger[id]
			v.LocalID = id
			serverID := sc.ServerID
			updatedAt := sc.UpdatedAt
			v.ServerID = &serverID
			v.SyncVersion = sc.SyncVersion
			v.ServerUpdatedAt = &updatedAt
			v.IsLocalOnly = false
			outLedger[id] = v

			// A pending create that collided with a live server
			// record continues as an update: the id exists
			// server-side now.
			if pch.Action == models.ActionCreate {
				pch.Action = models.ActionUpdate
				outPending[id] = pch
			}
		}
	}

	// ── Pass 2: surviving pending changes ───────────────────────────────
	ids := make([]string, 0, len(outPending))
	for id := range outPending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return models.MergeResult{}, err
		}

		pch := outPending[id]
		v, hasVersion := outLedger[id]

		switch pch.Action {
		case models.ActionCreate:
			if !hasVersion || v.IsLocalOnly {
				res.ToCreate = append(res.ToCreate, pch)
			}
		case models.ActionUpdate:
			// Server-overruled updates were already dropped in
			// pass 1; everything left is newer than what the server
			// reported, or untouched by this pull.
			res.ToUpdate = append(res.ToUpdate, pch)
		case models.ActionDelete:
			if hasVersion && !v.IsLocalOnly {
				res.ToDelete = append(res.ToDelete, pch)
			} else {
				// The record never reached the server; there is
				// nothing to delete there.
				delete(outPending, id)
				res.Dropped = append(res.Dropped, id)
			}
		}
	}

	res.Merged = make([]models.Record, 0, len(localIndex))
	for _, rec := range localIndex {
		res.Merged = append(res.Merged, rec)
	}
	sort.Slice(res.Merged, func(i, j int) bool { return res.Merged[i].ID < res.Merged[j].ID })

	res.Ledger = outLedger
	return res, nil
}

// adopt takes the server copy of a record into the local set and links its
// identity in the ledger.
func (e *mergeEngine) adopt(
	id string,
	sc models.ServerRecord,
	localIndex map[string]models.Record,
	ledger map[string]models.RecordVersion,
	res *models.MergeResult,
) {
	rec := sc.Record
	rec.ID = id
	localIndex[id] = rec
	res.Upserts = append(res.Upserts, rec)

	serverID := sc.ServerID
	updatedAt := sc.UpdatedAt
	ledger[id] = models.RecordVersion{
		LocalID:         id,
		ServerID:        &serverID,
		SyncVersion:     sc.SyncVersion,
		LocalUpdatedAt:  sc.UpdatedAt,
		ServerUpdatedAt: &updatedAt,
		IsLocalOnly:     false,
	}
}

func serverCopy(sc models.ServerRecord) *models.ServerRecord {
	cp := sc
	return &cp
}
