package http_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	httphandler "github.com/Mr-wang007s/personal-accounting-sub000/internal/handler/http"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	e2eSignKey = "e2e-sign-key"
	e2eIssuer  = "accounting-auth"
	e2eUserID  = int64(7)
)

// fakeRecordRepository — серверное хранилище в памяти с теми же
// протокольными гарантиями, что и у postgres-репозитория: монотонный
// счётчик версий, по одному значению на зафиксированную мутацию.
type fakeRecordRepository struct {
	mu      sync.Mutex
	records []models.ServerRecord
	version int64
	lastID  int64
}

func (f *fakeRecordRepository) find(userID, serverID int64, clientID string) int {
	for i, sr := range f.records {
		if sr.UserID != userID {
			continue
		}
		if serverID != 0 && sr.ServerID == serverID {
			return i
		}
		if serverID == 0 && clientID != "" && sr.ID == clientID {
			return i
		}
	}
	return -1
}

func (f *fakeRecordRepository) ApplyPush(_ context.Context, userID int64, req models.PushRequest) (store.RecordApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res store.RecordApplyResult
	for _, rec := range req.Created {
		f.version++
		f.lastID++
		f.records = append(f.records, models.ServerRecord{
			Record:      rec,
			ServerID:    f.lastID,
			UserID:      userID,
			SyncVersion: f.version,
		})
		res.Created++
		res.Applied = append(res.Applied, models.AppliedChange{
			ClientID: rec.ID, ServerID: f.lastID,
			Action: models.ActionCreate, SyncVersion: f.version,
		})
	}

	for _, upd := range req.Updated {
		i := f.find(userID, upd.ServerID, upd.ClientID)
		if i < 0 || f.records[i].SyncVersion != upd.SyncVersion {
			res.Conflicts = append(res.Conflicts, models.PushConflict{
				ClientID: upd.ClientID, ServerID: upd.ServerID,
				Type: "update", Reason: models.ReasonVersionMismatch,
			})
			continue
		}
		f.version++
		sr := &f.records[i]
		if upd.Type != nil {
			sr.Type = *upd.Type
		}
		if upd.Amount != nil {
			sr.Amount = *upd.Amount
		}
		if upd.Category != nil {
			sr.Category = *upd.Category
		}
		if upd.Date != nil {
			sr.Date = *upd.Date
		}
		if upd.Note != nil {
			sr.Note = upd.Note
		}
		sr.UpdatedAt = upd.UpdatedAt
		sr.SyncVersion = f.version
		res.Updated++
		res.Applied = append(res.Applied, models.AppliedChange{
			ClientID: sr.ID, ServerID: sr.ServerID,
			Action: models.ActionUpdate, SyncVersion: f.version,
		})
	}

	for _, serverID := range req.Deleted {
		i := f.find(userID, serverID, "")
		if i < 0 {
			continue
		}
		f.version++
		now := time.Now().UTC()
		sr := &f.records[i]
		sr.DeletedAt = &now
		sr.SyncVersion = f.version
		res.Deleted++
		res.Applied = append(res.Applied, models.AppliedChange{
			ClientID: sr.ID, ServerID: sr.ServerID,
			Action: models.ActionDelete, SyncVersion: f.version,
		})
	}

	res.ServerVersion = f.version
	return res, nil
}

func (f *fakeRecordRepository) PullSince(_ context.Context, userID, sinceVersion int64) ([]models.ServerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.ServerRecord
	for _, sr := range f.records {
		if sr.UserID == userID && sr.SyncVersion > sinceVersion {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SyncVersion < out[j].SyncVersion })
	return out, nil
}

func (f *fakeRecordRepository) GetAll(ctx context.Context, userID int64) ([]models.ServerRecord, error) {
	return f.PullSince(ctx, userID, 0)
}

func (f *fakeRecordRepository) CurrentVersion(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version, nil
}

func (f *fakeRecordRepository) PurgeTombstones(_ context.Context, userID int64, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.records[:0]
	var purged int64
	for _, sr := range f.records {
		if sr.UserID == userID && sr.DeletedAt != nil && sr.DeletedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, sr)
	}
	f.records = kept
	return purged, nil
}

func mintBearer(t *testing.T, userID int64) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    e2eIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e2eSignKey))
	require.NoError(t, err)
	return token
}

// startSyncServer поднимает полный серверный стек поверх хранилища в
// памяти и возвращает шлюз, аутентифицированный под e2eUserID.
func startSyncServer(t *testing.T) (*fakeRecordRepository, adapter.SyncGateway, string) {
	t.Helper()

	repo := &fakeRecordRepository{}
	h := httphandler.NewHandler(
		&service.Services{
			SyncService:    service.NewSyncService(repo, logger.Nop()),
			AppInfoService: service.NewAppInfoService(config.App{Version: "test"}, logger.Nop()),
		},
		config.Auth{TokenSignKey: e2eSignKey, TokenIssuer: e2eIssuer},
		logger.Nop(),
	)

	srv := httptest.NewServer(h.Init())
	t.Cleanup(srv.Close)

	gateway := adapter.NewHTTPSyncGateway(adapter.HTTPClientConfig{
		BaseURL:  srv.URL,
		Token:    mintBearer(t, e2eUserID),
		DeviceID: "device-e2e",
		Timeout:  5 * time.Second,
	})
	return repo, gateway, srv.URL
}

// buildClient собирает клиентскую часть движка на реальном SQLite.
func buildClient(t *testing.T, ctx context.Context, gateway adapter.SyncGateway, serverURL string) (service.ClientRecordService, service.SyncOrchestrator) {
	t.Helper()

	storages, err := store.NewClientStorages(
		ctx,
		config.ClientStorage{DBPath: filepath.Join(t.TempDir(), "client.db")},
		logger.Nop(),
	)
	require.NoError(t, err)

	orch := service.NewSyncOrchestrator(gateway, storages, serverURL, logger.Nop())
	require.NoError(t, orch.Load(ctx))

	return service.NewClientRecordService(storages.Records, orch, logger.Nop()), orch
}

// ── Сквозной цикл ────────────────────────────────────────────────────────────

func TestSync_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, gateway, serverURL := startSyncServer(t)
	records, orch := buildClient(t, ctx, gateway, serverURL)

	note := "молоко и хлеб"
	created, err := records.Create(ctx, models.Record{
		Type:     models.Expense,
		Amount:   decimal.RequireFromString("125.50"),
		Category: "groceries",
		Date:     models.NewDate(2026, time.March, 1),
		Note:     &note,
		LedgerID: "default",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	report, err := orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.Conflicts)
	assert.Equal(t, int64(1), report.ServerVersion)
	assert.Zero(t, orch.PendingCount(), "изменение подтверждено сервером")

	// Запись возвращается с версии 0 ровно в том виде, в каком была
	// создана, с сохранённым клиентским id.
	pull, err := gateway.Pull(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pull.Changes, 1)

	got := pull.Changes[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.Expense, got.Type)
	assert.True(t, created.Amount.Equal(got.Amount), "сумма пережила сериализацию")
	assert.Equal(t, "groceries", got.Category)
	assert.Equal(t, created.Date.String(), got.Date.String())
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)
	assert.Equal(t, "default", got.LedgerID)
	assert.NotZero(t, got.ServerID)
	assert.Equal(t, int64(1), got.SyncVersion)
	assert.Equal(t, int64(1), pull.ServerVersion)

	// Повторный цикл без локальных правок ничего не отправляет и не
	// плодит дублей.
	report, err = orch.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Created)

	pull, err = gateway.Pull(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pull.Changes, 1)
}

func TestSync_PullIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, gateway, _ := startSyncServer(t)

	_, err := gateway.Push(ctx, models.PushRequest{Created: []models.Record{
		{
			ID:       "c1",
			Type:     models.Income,
			Amount:   decimal.NewFromInt(1500),
			Category: "salary",
			Date:     models.NewDate(2026, time.March, 1),
			LedgerID: "default",
		},
		{
			ID:       "c2",
			Type:     models.Expense,
			Amount:   decimal.RequireFromString("900.50"),
			Category: "rent",
			Date:     models.NewDate(2026, time.March, 2),
			LedgerID: "default",
		},
	}})
	require.NoError(t, err)

	first, err := gateway.Pull(ctx, 0)
	require.NoError(t, err)
	second, err := gateway.Pull(ctx, 0)
	require.NoError(t, err)

	// Повторный pull с тем же курсором — тот же ответ: та же версия,
	// те же изменения в том же порядке.
	assert.Equal(t, first.ServerVersion, second.ServerVersion)
	assert.Equal(t, first.Changes, second.Changes)

	// Pull с актуальным курсором пуст, но версию сообщает ту же.
	caughtUp, err := gateway.Pull(ctx, first.ServerVersion)
	require.NoError(t, err)
	assert.Empty(t, caughtUp.Changes)
	assert.Equal(t, first.ServerVersion, caughtUp.ServerVersion)
}
