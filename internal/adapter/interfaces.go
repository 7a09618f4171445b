// Package adapter provides transport-layer abstractions for communicating
// with the accounting sync server.
//
// The primary abstraction is [SyncGateway], which decouples the client sync
// engine from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPSyncGateway]) built on resty.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrUnauthorized] for 401, [ErrNetwork] for a failed
// connection).
package adapter

import (
	"context"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/sync_gateway_mock.go -package=mock

// SyncGateway defines transport-agnostic communication with the sync server.
// Implementations are responsible for serialisation, authentication header
// management, and mapping transport-level errors to the sentinel values
// defined in this package.
type SyncGateway interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent authenticated requests.
	SetToken(token string)

	// Token returns the bearer token currently stored in the gateway, or an
	// empty string if no token has been set yet.
	Token() string

	// Ping performs a lightweight unauthenticated reachability probe against
	// the server's discovery endpoint. A nil error means the server is
	// reachable and healthy.
	Ping(ctx context.Context) error

	// Pull fetches every record change committed on the server after
	// lastSyncVersion, together with the server's current version counter.
	// Pull is read-only and safe to repeat.
	Pull(ctx context.Context, lastSyncVersion int64) (models.PullResponse, error)

	// Push submits a batch of local mutations to the server. Per-item
	// rejections are reported inside the response conflicts list; only
	// transport or whole-batch failures surface as an error.
	Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error)

	// FullSync fetches the complete server-side state for the authenticated
	// user, including tombstones. Used for first sync and recovery.
	FullSync(ctx context.Context) (models.FullSyncResponse, error)
}
