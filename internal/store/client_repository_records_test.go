package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClientDB открывает настоящую SQLite-базу во временном каталоге:
// локальное хранилище достаточно дёшево, чтобы тестировать без моков.
func newTestClientDB(t *testing.T) *ClientDB {
	t.Helper()

	db, err := NewClientDB(context.Background(), filepath.Join(t.TempDir(), "client.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func localTestRecord(id string) models.Record {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return models.Record{
		ID:        id,
		Type:      models.Expense,
		Amount:    decimal.RequireFromString("125.50"),
		Category:  "groceries",
		Date:      models.NewDate(2026, time.March, 1),
		LedgerID:  "default",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ── Save / Get ───────────────────────────────────────────────────────────────

func TestLocalRecordRepository_SaveAndGet(t *testing.T) {
	repo := NewLocalRecordRepository(newTestClientDB(t))
	ctx := context.Background()

	note := "еженедельные покупки"
	rec := localTestRecord("r1")
	rec.Note = &note

	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Type, got.Type)
	assert.True(t, got.Amount.Equal(rec.Amount), "сумма проходит через строку без потери точности")
	assert.Equal(t, rec.Date.String(), got.Date.String())
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)
	assert.Equal(t, rec.LedgerID, got.LedgerID)
}

func TestLocalRecordRepository_Save_UpsertsExisting(t *testing.T) {
	repo := NewLocalRecordRepository(newTestClientDB(t))
	ctx := context.Background()

	rec := localTestRecord("r1")
	require.NoError(t, repo.Save(ctx, rec))

	rec.Category = "transport"
	rec.Amount = decimal.NewFromInt(40)
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "transport", got.Category)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(40)))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "повторное сохранение не создаёт дубликата")
}

func TestLocalRecordRepository_Get_NotFound(t *testing.T) {
	repo := NewLocalRecordRepository(newTestClientDB(t))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// ── GetAll ───────────────────────────────────────────────────────────────────

func TestLocalRecordRepository_GetAll_OrdersByDateDescending(t *testing.T) {
	repo := NewLocalRecordRepository(newTestClientDB(t))
	ctx := context.Background()

	older := localTestRecord("older")
	older.Date = models.NewDate(2026, time.February, 1)
	newer := localTestRecord("newer")
	newer.Date = models.NewDate(2026, time.March, 15)

	require.NoError(t, repo.Save(ctx, older, newer))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].ID, "свежие записи идут первыми")
	assert.Equal(t, "older", all[1].ID)
}

// ── Delete / ReplaceAll ──────────────────────────────────────────────────────

func TestLocalRecordRepository_Delete(t *testing.T) {
	repo := NewLocalRecordRepository(newTestClientDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, localTestRecord("r1"), localTestRecord("r2")))
	require.NoError(t, repo.Delete(ctx, "r1"))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "r2", all[0].ID)
}

func TestLocalRecordRepository_ReplaceAll(t *testing.T) {
	repo := NewLocalRecordRepository(newTestClientDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, localTestRecord("old1"), localTestRecord("old2")))

	require.NoError(t, repo.ReplaceAll(ctx, []models.Record{localTestRecord("fresh")}))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fresh", all[0].ID, "полная выгрузка замещает локальный набор целиком")
}

// ── Состояние синхронизации ──────────────────────────────────────────────────

func TestSyncStateRepository_BlobsRoundTrip(t *testing.T) {
	repo := NewSyncStateRepository(newTestClientDB(t))
	ctx := context.Background()

	serverID := int64(77)
	meta := models.SyncMeta{
		LastSyncVersion: 9,
		LastSyncAt:      time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		ServerURL:       "http://srv:8080",
	}
	pending := map[string]models.PendingChange{
		"r1": {ID: "r1", Action: models.ActionDelete, Timestamp: meta.LastSyncAt},
	}
	ledger := map[string]models.RecordVersion{
		"r1": {LocalID: "r1", ServerID: &serverID, SyncVersion: 9},
	}

	require.NoError(t, repo.SetMeta(ctx, meta))
	require.NoError(t, repo.SetPending(ctx, pending))
	require.NoError(t, repo.SetLedger(ctx, ledger))

	gotMeta, err := repo.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.LastSyncVersion, gotMeta.LastSyncVersion)
	assert.Equal(t, meta.ServerURL, gotMeta.ServerURL)

	gotPending, err := repo.GetPending(ctx)
	require.NoError(t, err)
	require.Contains(t, gotPending, "r1")
	assert.Equal(t, models.ActionDelete, gotPending["r1"].Action)

	gotLedger, err := repo.GetLedger(ctx)
	require.NoError(t, err)
	require.Contains(t, gotLedger, "r1")
	require.NotNil(t, gotLedger["r1"].ServerID)
	assert.Equal(t, serverID, *gotLedger["r1"].ServerID)
}

func TestSyncStateRepository_MissingBlobsAreZeroValues(t *testing.T) {
	repo := NewSyncStateRepository(newTestClientDB(t))
	ctx := context.Background()

	meta, err := repo.GetMeta(ctx)
	require.NoError(t, err, "первый запуск обходится без строк состояния")
	assert.Zero(t, meta.LastSyncVersion)

	pending, err := repo.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	ledger, err := repo.GetLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestSyncStateRepository_CommitCycle_Atomic(t *testing.T) {
	db := newTestClientDB(t)
	stateRepo := NewSyncStateRepository(db)
	recordRepo := NewLocalRecordRepository(db)
	ctx := context.Background()

	require.NoError(t, recordRepo.Save(ctx, localTestRecord("stays"), localTestRecord("goes")))

	merged := localTestRecord("merged")
	commit := CycleCommit{
		Upserts: []models.Record{merged},
		Deletes: []string{"goes"},
		Meta:    models.SyncMeta{LastSyncVersion: 5},
		Pending: map[string]models.PendingChange{},
		Ledger: map[string]models.RecordVersion{
			"merged": {LocalID: "merged", SyncVersion: 5},
		},
	}
	require.NoError(t, stateRepo.CommitCycle(ctx, commit))

	all, err := recordRepo.GetAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, rec := range all {
		ids = append(ids, rec.ID)
	}
	assert.ElementsMatch(t, []string{"stays", "merged"}, ids)

	meta, err := stateRepo.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.LastSyncVersion)

	pending, err := stateRepo.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "подтверждённые изменения вычищаются вместе с коммитом цикла")
}
