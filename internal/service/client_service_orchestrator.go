package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// stateResetDelay is how long the success and error states are shown before
// the machine settles back to idle.
const stateResetDelay = 2 * time.Second

// syncOrchestrator is the concrete implementation of SyncOrchestrator. It
// drives the pull, merge, push, commit cycle, owns the one-sync-in-flight
// guard, and is the single write path for tracked mutations so the
// in-memory tracker and its persisted blobs never drift apart.
type syncOrchestrator struct {
	gateway   adapter.SyncGateway
	records   store.LocalRecordRepository
	syncState store.SyncStateRepository
	committer store.CycleCommitter
	tracker   ChangeTracker
	merger    MergeEngine
	log       *logger.Logger

	serverURL string

	mu        sync.Mutex
	inFlight  bool
	state     models.SyncState
	meta      models.SyncMeta
	connected bool
	onState   func(state models.SyncState, pending int)
	onTrack   func()

	now func() time.Time
}

func NewSyncOrchestrator(
	gateway adapter.SyncGateway,
	storages *store.ClientStorages,
	serverURL string,
	log *logger.Logger,
) SyncOrchestrator {
	return &syncOrchestrator{
		gateway:   gateway,
		records:   storages.Records,
		syncState: storages.SyncState,
		committer: storages.Committer,
		tracker:   NewChangeTracker(log),
		merger:    NewMergeEngine(),
		log:       log,
		serverURL: serverURL,
		state:     models.SyncStateIdle,
		connected: true,
		now:       time.Now,
	}
}

func (o *syncOrchestrator) Load(ctx context.Context) error {
	meta, err := o.syncState.GetMeta(ctx)
	if err != nil {
		return fmt.Errorf("load sync meta: %w", err)
	}
	pending, err := o.syncState.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending changes: %w", err)
	}
	ledger, err := o.syncState.GetLedger(ctx)
	if err != nil {
		return fmt.Errorf("load version ledger: %w", err)
	}

	o.tracker.Replace(pending, ledger)

	o.mu.Lock()
	o.meta = meta
	o.mu.Unlock()

	o.log.Info().
		Int64("last_sync_version", meta.LastSyncVersion).
		Int("pending", len(pending)).
		Msg("sync state restored")
	return nil
}

// Sync implements SyncOrchestrator. The cycle commits the pulled merge even
// when the push step fails, because pull is idempotent and safe to keep;
// pending changes are only cleared once the server acknowledged them, which
// gives at-least-once delivery across cycles.
func (o *syncOrchestrator) Sync(ctx context.Context) (models.SyncReport, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return models.SyncReport{}, ErrSyncInFlight
	}
	o.inFlight = true
	meta := o.meta
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	o.setState(models.SyncStateChecking)

	if err := o.gateway.Ping(ctx); err != nil {
		o.markConnected(false)
		o.setState(models.SyncStateOffline)
		return models.SyncReport{}, fmt.Errorf("%w: %w", ErrOffline, err)
	}
	o.markConnected(true)
	o.setState(models.SyncStateSyncing)

	cycleStart := o.now()

	pull, err := o.gateway.Pull(ctx, meta.LastSyncVersion)
	if err != nil {
		return models.SyncReport{}, o.fail("pull", err)
	}

	local, err := o.records.GetAll(ctx)
	if err != nil {
		return models.SyncReport{}, o.fail("read local records", err)
	}

	pending, ledger := o.tracker.Snapshot()
	res, err := o.merger.Merge(ctx, local, pull.Changes, pending, ledger)
	if err != nil {
		return models.SyncReport{}, o.fail("merge", err)
	}

	o.tracker.RemoveOlder(res.Dropped, cycleStart)
	o.tracker.ApplyLedger(res.Ledger, res.Removed)

	report := models.SyncReport{
		Pulled:    len(pull.Changes),
		Conflicts: res.Conflicts,
	}
	serverVersion := pull.ServerVersion

	req, pushedIDs := buildPushRequest(res)
	if !req.Empty() {
		pushResp, pushErr := o.gateway.Push(ctx, req)
		if pushErr != nil {
			// Keep the pulled merge: records and ledger advance,
			// pending changes stay for the next cycle.
			if commitErr := o.commitCycle(ctx, res, meta); commitErr != nil {
				pushErr = errors.Join(pushErr, commitErr)
			}
			return report, o.fail("push", pushErr)
		}

		o.tracker.RemoveOlder(pushedIDs, cycleStart)
		o.applyAcks(pushResp.Applied)
		o.reportPushConflicts(&report, pushResp.Conflicts)

		report.Created = pushResp.Created
		report.Updated = pushResp.Updated
		report.Deleted = pushResp.Deleted
		serverVersion = max(serverVersion, pushResp.ServerVersion)
	}

	newMeta := models.SyncMeta{
		LastSyncVersion: serverVersion,
		LastSyncAt:      o.now(),
		ServerURL:       o.serverURL,
	}
	if err = o.commitCycle(ctx, res, newMeta); err != nil {
		return report, o.fail("commit", err)
	}

	o.mu.Lock()
	o.meta = newMeta
	o.mu.Unlock()

	report.ServerVersion = serverVersion
	report.SyncedAt = newMeta.LastSyncAt

	o.log.Info().
		Int("pulled", report.Pulled).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("deleted", report.Deleted).
		Int("conflicts", len(report.Conflicts)).
		Int64("server_version", serverVersion).
		Msg("sync cycle finished")

	o.setState(models.SyncStateSuccess)
	return report, nil
}

// FullSync implements SyncOrchestrator. It bypasses the pending-change
// machinery: local records, ledger and meta are rebuilt from the server's
// complete state and all pending changes are discarded.
func (o *syncOrchestrator) FullSync(ctx context.Context) (models.SyncReport, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return models.SyncReport{}, ErrSyncInFlight
	}
	o.inFlight = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	o.setState(models.SyncStateChecking)
	if err := o.gateway.Ping(ctx); err != nil {
		o.markConnected(false)
		o.setState(models.SyncStateOffline)
		return models.SyncReport{}, fmt.Errorf("%w: %w", ErrOffline, err)
	}
	o.markConnected(true)
	o.setState(models.SyncStateSyncing)

	full, err := o.gateway.FullSync(ctx)
	if err != nil {
		return models.SyncReport{}, o.fail("full sync", err)
	}

	live := make([]models.Record, 0, len(full.Records))
	ledger := make(map[string]models.RecordVersion, len(full.Records))
	for _, sc := range full.Records {
		if sc.Deleted() {
			continue
		}
		live = append(live, sc.Record)

		serverID := sc.ServerID
		updatedAt := sc.UpdatedAt
		ledger[sc.ID] = models.RecordVersion{
			LocalID:         sc.ID,
			ServerID:        &serverID,
			SyncVersion:     sc.SyncVersion,
			LocalUpdatedAt:  sc.UpdatedAt,
			ServerUpdatedAt: &updatedAt,
			IsLocalOnly:     false,
		}
	}

	if err = o.records.ReplaceAll(ctx, live); err != nil {
		return models.SyncReport{}, o.fail("replace local records", err)
	}

	newMeta := models.SyncMeta{
		LastSyncVersion: full.ServerVersion,
		LastSyncAt:      o.now(),
		ServerURL:       o.serverURL,
	}
	commit := store.CycleCommit{
		Meta:    newMeta,
		Pending: map[string]models.PendingChange{},
		Ledger:  ledger,
	}
	if err = o.committer.CommitCycle(ctx, commit); err != nil {
		return models.SyncReport{}, o.fail("commit full sync", err)
	}

	o.tracker.Replace(map[string]models.PendingChange{}, ledger)

	o.mu.Lock()
	o.meta = newMeta
	o.mu.Unlock()

	o.log.Info().
		Int("records", len(live)).
		Int64("server_version", full.ServerVersion).
		Msg("full sync finished")

	o.setState(models.SyncStateSuccess)
	return models.SyncReport{
		Pulled:        len(full.Records),
		ServerVersion: full.ServerVersion,
		SyncedAt:      newMeta.LastSyncAt,
	}, nil
}

func (o *syncOrchestrator) Disconnect(ctx context.Context) error {
	if err := o.syncState.SetMeta(ctx, models.SyncMeta{}); err != nil {
		return fmt.Errorf("reset sync meta: %w", err)
	}

	o.mu.Lock()
	o.meta = models.SyncMeta{}
	o.mu.Unlock()

	o.setState(models.SyncStateIdle)
	return nil
}

func (o *syncOrchestrator) TrackCreate(ctx context.Context, rec models.Record) error {
	o.tracker.TrackCreate(rec)
	return o.afterTrack(ctx)
}

func (o *syncOrchestrator) TrackUpdate(ctx context.Context, id string, partial models.Record) error {
	o.tracker.TrackUpdate(id, partial)
	return o.afterTrack(ctx)
}

func (o *syncOrchestrator) TrackDelete(ctx context.Context, id string) error {
	o.tracker.TrackDelete(id)
	return o.afterTrack(ctx)
}

func (o *syncOrchestrator) State() models.SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *syncOrchestrator) PendingCount() int {
	return o.tracker.PendingCount()
}

func (o *syncOrchestrator) SetOnStateChange(fn func(state models.SyncState, pending int)) {
	o.mu.Lock()
	o.onState = fn
	o.mu.Unlock()
}

func (o *syncOrchestrator) SetOnTrack(fn func()) {
	o.mu.Lock()
	o.onTrack = fn
	o.mu.Unlock()
}

func (o *syncOrchestrator) SetConnected(connected bool) bool {
	o.mu.Lock()
	was := o.connected
	o.connected = connected
	inFlight := o.inFlight
	o.mu.Unlock()

	if !connected && !inFlight {
		o.setState(models.SyncStateOffline)
	}
	if connected && !was && o.State() == models.SyncStateOffline {
		o.setState(models.SyncStateIdle)
	}

	return connected && !was && o.tracker.PendingCount() > 0
}

// afterTrack persists the tracker state and kicks the auto-sync debounce.
// Pending changes hit disk on every mutation so a crash loses nothing that
// was already tracked.
func (o *syncOrchestrator) afterTrack(ctx context.Context) error {
	pending, ledger := o.tracker.Snapshot()
	if err := o.syncState.SetPending(ctx, pending); err != nil {
		return fmt.Errorf("persist pending changes: %w", err)
	}
	if err := o.syncState.SetLedger(ctx, ledger); err != nil {
		return fmt.Errorf("persist version ledger: %w", err)
	}

	o.mu.Lock()
	onTrack := o.onTrack
	onState := o.onState
	state := o.state
	o.mu.Unlock()

	if onState != nil {
		onState(state, len(pending))
	}
	if onTrack != nil {
		onTrack()
	}
	return nil
}

// commitCycle persists the merge outcome plus the current tracker state in
// one transaction.
func (o *syncOrchestrator) commitCycle(ctx context.Context, res models.MergeResult, meta models.SyncMeta) error {
	pending, ledger := o.tracker.Snapshot()
	return o.committer.CommitCycle(ctx, store.CycleCommit{
		Upserts: res.Upserts,
		Deletes: res.Removed,
		Meta:    meta,
		Pending: pending,
		Ledger:  ledger,
	})
}

// applyAcks folds the server's push acknowledgements into the ledger: every
// committed mutation links the server id and the fresh sync version, and
// acknowledged deletes drop their ledger entry.
func (o *syncOrchestrator) applyAcks(acks []models.AppliedChange) {
	if len(acks) == 0 {
		return
	}

	_, ledger := o.tracker.Snapshot()
	now := o.now()

	entries := make(map[string]models.RecordVersion, len(acks))
	var removed []string
	for _, ack := range acks {
		if ack.Action == models.ActionDelete {
			removed = append(removed, ack.ClientID)
			continue
		}

		v, ok := ledger[ack.ClientID]
		if !ok {
			v = models.RecordVersion{LocalID: ack.ClientID, LocalUpdatedAt: now}
		}
		serverID := ack.ServerID
		serverUpdatedAt := now
		v.ServerID = &serverID
		v.SyncVersion = ack.SyncVersion
		v.ServerUpdatedAt = &serverUpdatedAt
		v.IsLocalOnly = false
		entries[ack.ClientID] = v
	}

	o.tracker.ApplyLedger(entries, removed)
}

func (o *syncOrchestrator) reportPushConflicts(report *models.SyncReport, conflicts []models.PushConflict) {
	for _, pc := range conflicts {
		report.Conflicts = append(report.Conflicts, models.ConflictRecord{
			ID:         pc.ClientID,
			Type:       models.ConflictUpdateUpdate,
			ResolvedBy: models.ResolvedByServer,
		})
		o.log.Warn().
			Str("client_id", pc.ClientID).
			Int64("server_id", pc.ServerID).
			Str("reason", pc.Reason).
			Msg("push rejected by server")
	}
}

// fail classifies a cycle error into the matching terminal state. Network
// failures flip the machine to offline; everything else lands in error.
// Pending changes are never discarded on failure.
func (o *syncOrchestrator) fail(step string, err error) error {
	if errors.Is(err, adapter.ErrNetwork) {
		o.markConnected(false)
		o.setState(models.SyncStateOffline)
	} else {
		o.setState(models.SyncStateError)
	}

	o.log.Err(err).Str("step", step).Msg("sync cycle failed")
	return fmt.Errorf("%s: %w", step, err)
}

func (o *syncOrchestrator) markConnected(connected bool) {
	o.mu.Lock()
	o.connected = connected
	o.mu.Unlock()
}

// setState records a transition, notifies the observer, and schedules the
// decay of the success and error states back to idle.
func (o *syncOrchestrator) setState(state models.SyncState) {
	o.mu.Lock()
	o.state = state
	onState := o.onState
	o.mu.Unlock()

	if onState != nil {
		onState(state, o.tracker.PendingCount())
	}

	if state == models.SyncStateSuccess || state == models.SyncStateError {
		time.AfterFunc(stateResetDelay, func() {
			o.mu.Lock()
			settled := o.state == state && !o.inFlight
			o.mu.Unlock()
			if settled {
				o.setState(models.SyncStateIdle)
			}
		})
	}
}

// buildPushRequest converts the merge outcome into the wire payload.
// Updates carry the ledger's sync version as the optimistic-concurrency
// token and fall back to client-id addressing when the server id is not
// known yet. Returns the request plus every record id it references.
func buildPushRequest(res models.MergeResult) (models.PushRequest, []string) {
	var req models.PushRequest
	ids := make([]string, 0, len(res.ToCreate)+len(res.ToUpdate)+len(res.ToDelete))

	for _, pch := range res.ToCreate {
		if pch.Data == nil {
			continue
		}
		req.Created = append(req.Created, *pch.Data)
		ids = append(ids, pch.ID)
	}

	for _, pch := range res.ToUpdate {
		if pch.Data == nil {
			continue
		}
		v := res.Ledger[pch.ID]

		upd := models.RecordUpdate{
			ClientID:    pch.ID,
			UpdatedAt:   pch.Timestamp,
			SyncVersion: v.SyncVersion,
		}
		if v.ServerID != nil {
			upd.ServerID = *v.ServerID
		}

		d := pch.Data
		if d.Type != "" {
			t := d.Type
			upd.Type = &t
		}
		if !d.Amount.IsZero() {
			a := d.Amount
			upd.Amount = &a
		}
		if d.Category != "" {
			c := d.Category
			upd.Category = &c
		}
		if !d.Date.IsZero() {
			dt := d.Date
			upd.Date = &dt
		}
		if d.Note != nil {
			upd.Note = d.Note
		}
		if d.LedgerID != "" {
			l := d.LedgerID
			upd.LedgerID = &l
		}

		req.Updated = append(req.Updated, upd)
		ids = append(ids, pch.ID)
	}

	for _, pch := range res.ToDelete {
		v := res.Ledger[pch.ID]
		if v.ServerID == nil {
			continue
		}
		req.Deleted = append(req.Deleted, *v.ServerID)
		ids = append(ids, pch.ID)
	}

	return req, ids
}
