package service

import (
	"context"
	"testing"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/mock"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestOrchestrator — хелпер для сборки оркестратора на моках хранилища.
func newTestOrchestrator(t *testing.T, ctrl *gomock.Controller) (
	*syncOrchestrator,
	*mock.MockSyncGateway,
	*mock.MockLocalRecordRepository,
	*mock.MockSyncStateRepository,
	*mock.MockCycleCommitter,
) {
	t.Helper()

	gateway := mock.NewMockSyncGateway(ctrl)
	records := mock.NewMockLocalRecordRepository(ctrl)
	syncState := mock.NewMockSyncStateRepository(ctrl)
	committer := mock.NewMockCycleCommitter(ctrl)

	storages := &store.ClientStorages{
		Records:   records,
		SyncState: syncState,
		Committer: committer,
	}

	o := NewSyncOrchestrator(gateway, storages, "http://srv:8080", logger.Nop()).(*syncOrchestrator)
	return o, gateway, records, syncState, committer
}

// ── Sync ─────────────────────────────────────────────────────────────────────

func TestSyncOrchestrator_Sync_OfflineOnPingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, _, _, _ := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	gateway.EXPECT().Ping(ctx).Return(adapter.ErrNetwork)

	_, err := o.Sync(ctx)
	require.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, models.SyncStateOffline, o.State())
}

func TestSyncOrchestrator_Sync_SecondCallWhileInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, _, _, _, _ := newTestOrchestrator(t, ctrl)
	o.inFlight = true

	_, err := o.Sync(context.Background())
	require.ErrorIs(t, err, ErrSyncInFlight)
}

func TestSyncOrchestrator_Sync_PullOnlyAdvancesMeta(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, records, _, committer := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	pulled := serverRecord("s1", 10, 3, mergeBase)

	gateway.EXPECT().Ping(ctx).Return(nil)
	gateway.EXPECT().Pull(ctx, int64(0)).Return(models.PullResponse{
		ServerVersion: 3,
		Changes:       []models.ServerRecord{pulled},
	}, nil)
	records.EXPECT().GetAll(ctx).Return(nil, nil)
	committer.EXPECT().CommitCycle(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, commit store.CycleCommit) error {
			assert.Equal(t, int64(3), commit.Meta.LastSyncVersion)
			assert.Equal(t, "http://srv:8080", commit.Meta.ServerURL)
			require.Len(t, commit.Upserts, 1)
			assert.Equal(t, "s1", commit.Upserts[0].ID)
			return nil
		})

	report, err := o.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Pulled)
	assert.Equal(t, int64(3), report.ServerVersion)
	assert.Equal(t, models.SyncStateSuccess, o.State())
	assert.Equal(t, int64(3), o.meta.LastSyncVersion)
}

func TestSyncOrchestrator_Sync_PushAcksLinkIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, records, _, committer := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	rec := testRecord("r1")
	o.tracker.TrackCreate(rec)

	gateway.EXPECT().Ping(ctx).Return(nil)
	gateway.EXPECT().Pull(ctx, int64(0)).Return(models.PullResponse{ServerVersion: 3}, nil)
	records.EXPECT().GetAll(ctx).Return([]models.Record{rec}, nil)
	gateway.EXPECT().Push(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			require.Len(t, req.Created, 1)
			assert.Equal(t, "r1", req.Created[0].ID)
			return models.PushResponse{
				ServerVersion: 4,
				Created:       1,
				Applied: []models.AppliedChange{
					{ClientID: "r1", ServerID: 77, Action: models.ActionCreate, SyncVersion: 4},
				},
			}, nil
		})
	committer.EXPECT().CommitCycle(ctx, gomock.Any()).Return(nil)

	report, err := o.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	// Курсор двигается к максимуму из pull и push версий.
	assert.Equal(t, int64(4), report.ServerVersion)

	// Подтверждение связало локальную запись с серверной идентичностью.
	assert.Zero(t, o.PendingCount())
	_, ledger := o.tracker.Snapshot()
	v := ledger["r1"]
	require.NotNil(t, v.ServerID)
	assert.Equal(t, int64(77), *v.ServerID)
	assert.Equal(t, int64(4), v.SyncVersion)
	assert.False(t, v.IsLocalOnly)
}

func TestSyncOrchestrator_Sync_PushFailureKeepsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, records, _, committer := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	rec := testRecord("r1")
	o.tracker.TrackCreate(rec)

	gateway.EXPECT().Ping(ctx).Return(nil)
	gateway.EXPECT().Pull(ctx, int64(0)).Return(models.PullResponse{ServerVersion: 2}, nil)
	records.EXPECT().GetAll(ctx).Return([]models.Record{rec}, nil)
	gateway.EXPECT().Push(ctx, gomock.Any()).Return(models.PushResponse{}, adapter.ErrInternalServerError)
	// Результат pull фиксируется, но курсор не двигается: push не подтверждён.
	committer.EXPECT().CommitCycle(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, commit store.CycleCommit) error {
			assert.Zero(t, commit.Meta.LastSyncVersion)
			assert.Contains(t, commit.Pending, "r1")
			return nil
		})

	_, err := o.Sync(ctx)
	require.Error(t, err)

	assert.Equal(t, 1, o.PendingCount(), "изменение остаётся до подтверждения сервером")
	assert.Equal(t, models.SyncStateError, o.State())
	assert.Zero(t, o.meta.LastSyncVersion)
}

func TestSyncOrchestrator_Sync_ReportsPushConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, records, _, committer := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	serverID := int64(10)
	o.tracker.Replace(
		map[string]models.PendingChange{"r1": {
			ID: "r1", Action: models.ActionUpdate,
			Data:      func() *models.Record { r := testRecord("r1"); return &r }(),
			Timestamp: mergeBase,
		}},
		map[string]models.RecordVersion{"r1": {LocalID: "r1", ServerID: &serverID, SyncVersion: 3}},
	)

	gateway.EXPECT().Ping(ctx).Return(nil)
	gateway.EXPECT().Pull(ctx, int64(0)).Return(models.PullResponse{ServerVersion: 5}, nil)
	records.EXPECT().GetAll(ctx).Return([]models.Record{testRecord("r1")}, nil)
	gateway.EXPECT().Push(ctx, gomock.Any()).Return(models.PushResponse{
		ServerVersion: 5,
		Conflicts: []models.PushConflict{
			{ClientID: "r1", ServerID: 10, Type: "update", Reason: models.ReasonVersionMismatch},
		},
	}, nil)
	committer.EXPECT().CommitCycle(ctx, gomock.Any()).Return(nil)

	report, err := o.Sync(ctx)
	require.NoError(t, err)

	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "r1", report.Conflicts[0].ID)
	assert.Equal(t, models.ResolvedByServer, report.Conflicts[0].ResolvedBy)
}

// ── FullSync ─────────────────────────────────────────────────────────────────

func TestSyncOrchestrator_FullSync_RebuildsLocalState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, records, _, committer := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	// Незакоммиченное изменение будет отброшено: полная синхронизация
	// строит состояние заново.
	o.tracker.TrackCreate(testRecord("stale"))

	gateway.EXPECT().Ping(ctx).Return(nil)
	gateway.EXPECT().FullSync(ctx).Return(models.FullSyncResponse{
		ServerVersion: 9,
		Records: []models.ServerRecord{
			serverRecord("s1", 10, 8, mergeBase),
			serverTombstone("s2", 11, 9, mergeBase),
		},
	}, nil)
	records.EXPECT().ReplaceAll(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, live []models.Record) error {
			require.Len(t, live, 1, "надгробия не попадают в локальное хранилище")
			assert.Equal(t, "s1", live[0].ID)
			return nil
		})
	committer.EXPECT().CommitCycle(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, commit store.CycleCommit) error {
			assert.Equal(t, int64(9), commit.Meta.LastSyncVersion)
			assert.Empty(t, commit.Pending)
			assert.Contains(t, commit.Ledger, "s1")
			return nil
		})

	report, err := o.FullSync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Pulled)
	assert.Zero(t, o.PendingCount())
	assert.Equal(t, int64(9), o.meta.LastSyncVersion)
}

// ── Disconnect ───────────────────────────────────────────────────────────────

func TestSyncOrchestrator_Disconnect_ResetsMeta(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, _, _, syncState, _ := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	o.meta = models.SyncMeta{LastSyncVersion: 42, ServerURL: "http://srv:8080"}
	syncState.EXPECT().SetMeta(ctx, models.SyncMeta{}).Return(nil)

	require.NoError(t, o.Disconnect(ctx))
	assert.Zero(t, o.meta.LastSyncVersion)
	assert.Empty(t, o.meta.ServerURL)
}

// ── Track* / SetConnected ────────────────────────────────────────────────────

func TestSyncOrchestrator_TrackCreate_PersistsAndNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, _, _, syncState, _ := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	syncState.EXPECT().SetPending(ctx, gomock.Any()).Return(nil)
	syncState.EXPECT().SetLedger(ctx, gomock.Any()).Return(nil)

	kicked := false
	o.SetOnTrack(func() { kicked = true })

	var notifiedPending int
	o.SetOnStateChange(func(_ models.SyncState, pending int) { notifiedPending = pending })

	require.NoError(t, o.TrackCreate(ctx, testRecord("r1")))
	assert.True(t, kicked, "дебаунс автосинхронизации должен перезапуститься")
	assert.Equal(t, 1, notifiedPending)
}

func TestSyncOrchestrator_SetConnected_Transitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, _, _, _, _ := newTestOrchestrator(t, ctrl)

	assert.False(t, o.SetConnected(false))
	assert.Equal(t, models.SyncStateOffline, o.State())

	// Восстановление без накопленных правок: повторный цикл не нужен.
	assert.False(t, o.SetConnected(true))
	assert.Equal(t, models.SyncStateIdle, o.State())

	o.tracker.TrackCreate(testRecord("r1"))
	o.SetConnected(false)
	assert.True(t, o.SetConnected(true), "есть накопленные правки — нужен цикл")
}

// ── buildPushRequest ─────────────────────────────────────────────────────────

func TestBuildPushRequest(t *testing.T) {
	serverID := int64(10)
	created := testRecord("a-new")
	note := "заметка"
	updated := testRecord("b-upd")
	updated.Note = &note

	res := models.MergeResult{
		ToCreate: []models.PendingChange{{ID: "a-new", Action: models.ActionCreate, Data: &created}},
		ToUpdate: []models.PendingChange{{ID: "b-upd", Action: models.ActionUpdate, Data: &updated, Timestamp: mergeBase}},
		ToDelete: []models.PendingChange{{ID: "c-del", Action: models.ActionDelete}},
		Ledger: map[string]models.RecordVersion{
			"b-upd": {LocalID: "b-upd", ServerID: &serverID, SyncVersion: 6},
			"c-del": {LocalID: "c-del", ServerID: &serverID, SyncVersion: 6},
		},
	}

	req, ids := buildPushRequest(res)

	require.Len(t, req.Created, 1)
	assert.Equal(t, "a-new", req.Created[0].ID)

	require.Len(t, req.Updated, 1)
	upd := req.Updated[0]
	assert.Equal(t, serverID, upd.ServerID)
	assert.Equal(t, "b-upd", upd.ClientID)
	assert.Equal(t, int64(6), upd.SyncVersion)
	require.NotNil(t, upd.Category)
	assert.Equal(t, "groceries", *upd.Category)
	require.NotNil(t, upd.Note)
	assert.Equal(t, note, *upd.Note)

	require.Len(t, req.Deleted, 1)
	assert.Equal(t, serverID, req.Deleted[0])

	assert.ElementsMatch(t, []string{"a-new", "b-upd", "c-del"}, ids)
}

func TestBuildPushRequest_SkipsDeleteWithoutServerID(t *testing.T) {
	res := models.MergeResult{
		ToDelete: []models.PendingChange{{ID: "never-synced", Action: models.ActionDelete}},
		Ledger:   map[string]models.RecordVersion{"never-synced": {LocalID: "never-synced", IsLocalOnly: true}},
	}

	req, ids := buildPushRequest(res)
	assert.True(t, req.Empty())
	assert.Empty(t, ids)
}

// Затухание success-состояния обратно в idle.
func TestSyncOrchestrator_SuccessStateDecaysToIdle(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	o, gateway, records, _, committer := newTestOrchestrator(t, ctrl)
	ctx := context.Background()

	gateway.EXPECT().Ping(ctx).Return(nil)
	gateway.EXPECT().Pull(ctx, int64(0)).Return(models.PullResponse{}, nil)
	records.EXPECT().GetAll(ctx).Return(nil, nil)
	committer.EXPECT().CommitCycle(ctx, gomock.Any()).Return(nil)

	_, err := o.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, models.SyncStateSuccess, o.State())

	assert.Eventually(t, func() bool {
		return o.State() == models.SyncStateIdle
	}, 2*stateResetDelay, 50*time.Millisecond)
}
