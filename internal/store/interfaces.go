package store

import (
	"context"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/record_repository_mock.go -package=mock

// RecordApplyResult is the outcome of one transactional push batch applied
// by the repository: per-list commit counts, the version counter after the
// batch, and the optimistic-concurrency rejections.
type RecordApplyResult struct {
	ServerVersion int64
	Created       int
	Updated       int
	Deleted       int
	Applied       []models.AppliedChange
	Conflicts     []models.PushConflict
}

// RecordRepository is the authoritative server-side record store. It owns
// the per-user monotonic version counter: every committed create, update
// and delete consumes exactly one counter value, and values are never
// reused even across retried requests.
type RecordRepository interface {
	// PullSince returns every record of userID (tombstones included)
	// whose sync version is strictly greater than sinceVersion, ordered
	// by sync version ascending.
	PullSince(ctx context.Context, userID, sinceVersion int64) ([]models.ServerRecord, error)

	// GetAll returns the complete record set of userID, tombstones
	// included. Used by the full-sync bootstrap path.
	GetAll(ctx context.Context, userID int64) ([]models.ServerRecord, error)

	// CurrentVersion returns the current value of userID's version
	// counter, zero when the user has never pushed.
	CurrentVersion(ctx context.Context, userID int64) (int64, error)

	// ApplyPush applies the created/updated/deleted lists within one
	// database transaction. Creates upsert by (user, client id); updates
	// with a stale sync version are reported as conflicts and skipped;
	// deletes tombstone, silently ignoring ids that do not exist or do
	// not belong to userID. The transaction serializes concurrent pushes
	// of the same user through the counter row lock.
	ApplyPush(ctx context.Context, userID int64, req models.PushRequest) (RecordApplyResult, error)

	// PurgeTombstones permanently removes tombstones deleted before the
	// given time. The sync protocol never calls this; it is the
	// extension point for a retention policy.
	PurgeTombstones(ctx context.Context, userID int64, before time.Time) (int64, error)
}
