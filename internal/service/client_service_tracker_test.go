package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(id string) models.Record {
	return models.Record{
		ID:       id,
		Type:     models.Expense,
		Amount:   decimal.NewFromInt(100),
		Category: "groceries",
		Date:     models.NewDate(2026, time.March, 1),
		LedgerID: "default",
	}
}

// newTestTracker возвращает трекер с управляемыми часами.
func newTestTracker(start time.Time) (*changeTracker, *time.Time) {
	clock := start
	tr := NewChangeTracker(logger.Nop()).(*changeTracker)
	tr.now = func() time.Time { return clock }
	return tr, &clock
}

// ── TrackCreate ──────────────────────────────────────────────────────────────

func TestChangeTracker_TrackCreate(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackCreate(testRecord("r1"))

	pending, ledger := tr.Snapshot()
	require.Len(t, pending, 1)
	require.Len(t, ledger, 1)

	pch := pending["r1"]
	assert.Equal(t, models.ActionCreate, pch.Action)
	require.NotNil(t, pch.Data)
	assert.Equal(t, "groceries", pch.Data.Category)

	v := ledger["r1"]
	assert.True(t, v.IsLocalOnly)
	assert.Nil(t, v.ServerID)
	assert.Zero(t, v.SyncVersion)
}

// ── TrackUpdate ──────────────────────────────────────────────────────────────

func TestChangeTracker_TrackUpdate_CoalescesIntoCreate(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackCreate(testRecord("r1"))
	tr.TrackUpdate("r1", models.Record{Amount: decimal.NewFromInt(250)})

	pending, _ := tr.Snapshot()
	require.Len(t, pending, 1, "последовательные правки сворачиваются в одну запись")

	pch := pending["r1"]
	// Создание ещё не отправлялось — обновление вливается в него.
	assert.Equal(t, models.ActionCreate, pch.Action)
	require.NotNil(t, pch.Data)
	assert.True(t, pch.Data.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "groceries", pch.Data.Category, "незатронутые поля сохраняются")
}

func TestChangeTracker_TrackUpdate_FailedCoalesceCarriesFreshEdit(t *testing.T) {
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	tr, clock := newTestTracker(start)
	tr.merge = func(_ *models.Record, _ models.Record) error {
		return errors.New("merge failure")
	}

	tr.TrackCreate(testRecord("r1"))
	*clock = start.Add(time.Minute)
	tr.TrackUpdate("r1", models.Record{Amount: decimal.NewFromInt(250)})

	pending, _ := tr.Snapshot()
	pch := pending["r1"]

	// Метка времени всё равно ушла вперёд, поэтому полезной нагрузкой
	// обязана стать свежая правка: старая при сравнении last-writer-wins
	// выиграла бы незаслуженно.
	assert.Equal(t, start.Add(time.Minute), pch.Timestamp)
	require.NotNil(t, pch.Data)
	assert.True(t, decimal.NewFromInt(250).Equal(pch.Data.Amount))
	assert.Equal(t, "r1", pch.Data.ID)
}

func TestChangeTracker_TrackUpdate_NewEntryForSyncedRecord(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackUpdate("r1", models.Record{Category: "transport"})

	pending, ledger := tr.Snapshot()
	pch := pending["r1"]
	assert.Equal(t, models.ActionUpdate, pch.Action)
	require.NotNil(t, pch.Data)
	assert.Equal(t, "transport", pch.Data.Category)
	assert.Contains(t, ledger, "r1")
}

func TestChangeTracker_TrackUpdate_DoesNotMutateSnapshot(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackCreate(testRecord("r1"))
	pending, _ := tr.Snapshot()

	tr.TrackUpdate("r1", models.Record{Category: "rent"})

	// Снимок, взятый до правки, не должен её видеть.
	assert.Equal(t, "groceries", pending["r1"].Data.Category)
}

// ── TrackDelete ──────────────────────────────────────────────────────────────

func TestChangeTracker_TrackDelete_ErasesUnsyncedCreate(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackCreate(testRecord("r1"))
	tr.TrackDelete("r1")

	pending, ledger := tr.Snapshot()
	// Сервер никогда не знал об этой записи — отправлять нечего.
	assert.Empty(t, pending)
	assert.Empty(t, ledger)
}

func TestChangeTracker_TrackDelete_ReplacesPendingUpdate(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackUpdate("r1", models.Record{Category: "rent"})
	tr.TrackDelete("r1")

	pending, _ := tr.Snapshot()
	require.Len(t, pending, 1)
	pch := pending["r1"]
	assert.Equal(t, models.ActionDelete, pch.Action)
	assert.Nil(t, pch.Data)
}

// ── RemoveOlder ──────────────────────────────────────────────────────────────

func TestChangeTracker_RemoveOlder_KeepsEditsMadeAfterCutoff(t *testing.T) {
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	tr, clock := newTestTracker(start)

	tr.TrackCreate(testRecord("r1"))
	tr.TrackCreate(testRecord("r2"))

	cutoff := start.Add(time.Second)

	// r2 отредактирована уже после начала цикла синхронизации.
	*clock = start.Add(2 * time.Second)
	tr.TrackUpdate("r2", models.Record{Category: "rent"})

	tr.RemoveOlder([]string{"r1", "r2"}, cutoff)

	pending, _ := tr.Snapshot()
	assert.NotContains(t, pending, "r1")
	assert.Contains(t, pending, "r2", "правка во время цикла не должна потеряться")
}

// ── ApplyLedger / Replace ────────────────────────────────────────────────────

func TestChangeTracker_ApplyLedger(t *testing.T) {
	tr, _ := newTestTracker(time.Now())

	tr.TrackCreate(testRecord("r1"))
	tr.TrackCreate(testRecord("r2"))

	serverID := int64(42)
	tr.ApplyLedger(map[string]models.RecordVersion{
		"r1": {LocalID: "r1", ServerID: &serverID, SyncVersion: 7, IsLocalOnly: false},
	}, []string{"r2"})

	_, ledger := tr.Snapshot()
	require.Contains(t, ledger, "r1")
	assert.Equal(t, int64(7), ledger["r1"].SyncVersion)
	assert.False(t, ledger["r1"].IsLocalOnly)
	assert.NotContains(t, ledger, "r2")
}

func TestChangeTracker_Replace(t *testing.T) {
	tr, _ := newTestTracker(time.Now())
	tr.TrackCreate(testRecord("old"))

	tr.Replace(
		map[string]models.PendingChange{"new": {ID: "new", Action: models.ActionDelete}},
		map[string]models.RecordVersion{"new": {LocalID: "new"}},
	)

	pending, ledger := tr.Snapshot()
	assert.NotContains(t, pending, "old")
	assert.Contains(t, pending, "new")
	assert.Contains(t, ledger, "new")
	assert.Equal(t, 1, tr.PendingCount())
}
