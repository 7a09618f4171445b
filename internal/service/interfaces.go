package service

import (
	"context"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// SyncService is the authoritative server-side counterpart of the sync
// protocol. It owns payload validation on top of the repository's
// transactional apply; the repository owns the version counter.
type SyncService interface {
	// Pull returns every record of userID committed after sinceVersion,
	// tombstones included, ordered by sync version ascending, plus the
	// user's current counter value. Pull is read-only: two calls with no
	// intervening writes return identical results.
	Pull(ctx context.Context, userID, sinceVersion int64) (models.PullResponse, error)

	// Push applies one batch of client mutations transactionally.
	// Malformed created records are rejected per item with reason
	// invalid_payload and never abort the rest of the batch; stale
	// updates are rejected per item with reason version_mismatch.
	Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResponse, error)

	// FullSync returns the user's complete record set with the current
	// counter value, for the client bootstrap and recovery path.
	FullSync(ctx context.Context, userID int64) (models.FullSyncResponse, error)
}

// AppInfoService reports service identity for the discovery probe.
type AppInfoService interface {
	// Ping describes the running service. Clients call it to establish
	// the server URL before the first sync.
	Ping(ctx context.Context) models.PingResponse
}
