package service

import (
	"context"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// syncService is the concrete implementation of SyncService.
type syncService struct {
	records store.RecordRepository
	logger  *logger.Logger
}

func NewSyncService(records store.RecordRepository, logger *logger.Logger) SyncService {
	return &syncService{
		records: records,
		logger:  logger,
	}
}

// Pull reads the version counter before the change query. The reported
// version must never exceed what the returned changes cover: a push that
// lands between the two reads is then re-delivered on the next pull
// instead of being skipped by an inflated cursor.
func (s *syncService) Pull(ctx context.Context, userID, sinceVersion int64) (models.PullResponse, error) {
	version, err := s.records.CurrentVersion(ctx, userID)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("read current version: %w", err)
	}

	changes, err := s.records.PullSince(ctx, userID, sinceVersion)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull since version %d: %w", sinceVersion, err)
	}

	return models.PullResponse{
		ServerVersion: version,
		Changes:       changes,
	}, nil
}

// Push implements SyncService. Validation runs before the transaction so a
// malformed item costs no counter value; every rejection is reported
// per item and the remainder of the batch still commits.
func (s *syncService) Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResponse, error) {
	log := logger.FromContext(ctx)

	valid, rejected := validatePushRequest(req)
	for _, pc := range rejected {
		log.Warn().
			Int64("user_id", userID).
			Str("client_id", pc.ClientID).
			Str("type", pc.Type).
			Msg("rejected malformed push item")
	}

	result, err := s.records.ApplyPush(ctx, userID, valid)
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("apply push batch: %w", err)
	}

	return models.PushResponse{
		ServerVersion: result.ServerVersion,
		Created:       result.Created,
		Updated:       result.Updated,
		Deleted:       result.Deleted,
		Applied:       result.Applied,
		Conflicts:     append(rejected, result.Conflicts...),
	}, nil
}

// FullSync orders its reads the same way as Pull: version first, so the
// snapshot's version never runs ahead of the records it ships.
func (s *syncService) FullSync(ctx context.Context, userID int64) (models.FullSyncResponse, error) {
	version, err := s.records.CurrentVersion(ctx, userID)
	if err != nil {
		return models.FullSyncResponse{}, fmt.Errorf("read current version: %w", err)
	}

	records, err := s.records.GetAll(ctx, userID)
	if err != nil {
		return models.FullSyncResponse{}, fmt.Errorf("load all records: %w", err)
	}

	return models.FullSyncResponse{
		ServerVersion: version,
		Records:       records,
	}, nil
}
