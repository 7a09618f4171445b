package service

import (
	"context"
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/utils"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

// clientRecordService is the concrete implementation of
// ClientRecordService. Every mutation lands in the local store first and is
// handed to the orchestrator's tracker; the network is never on the user's
// critical path.
type clientRecordService struct {
	records      store.LocalRecordRepository
	orchestrator SyncOrchestrator
	uuid         *utils.UUIDGenerator
	log          *logger.Logger

	now func() time.Time
}

func NewClientRecordService(
	records store.LocalRecordRepository,
	orchestrator SyncOrchestrator,
	log *logger.Logger,
) ClientRecordService {
	return &clientRecordService{
		records:      records,
		orchestrator: orchestrator,
		uuid:         utils.NewUUIDGenerator(),
		log:          log,
		now:          time.Now,
	}
}

func (s *clientRecordService) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	if err := validateRecord(rec); err != nil {
		return models.Record{}, err
	}

	now := s.now()
	rec.ID = s.uuid.Generate()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.records.Save(ctx, rec); err != nil {
		return models.Record{}, fmt.Errorf("save record locally: %w", err)
	}
	if err := s.orchestrator.TrackCreate(ctx, rec); err != nil {
		return models.Record{}, fmt.Errorf("track create: %w", err)
	}

	return rec, nil
}

func (s *clientRecordService) GetAll(ctx context.Context) ([]models.Record, error) {
	all, err := s.records.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local records: %w", err)
	}

	live := make([]models.Record, 0, len(all))
	for _, rec := range all {
		if rec.Deleted() {
			continue
		}
		live = append(live, rec)
	}
	return live, nil
}

func (s *clientRecordService) Get(ctx context.Context, id string) (models.Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return models.Record{}, fmt.Errorf("load local record %s: %w", id, err)
	}
	return rec, nil
}

func (s *clientRecordService) Update(ctx context.Context, id string, partial models.Record) (models.Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return models.Record{}, fmt.Errorf("load local record %s: %w", id, err)
	}

	partial.ID = id
	if err = mergo.Merge(&rec, partial, mergo.WithOverride); err != nil {
		return models.Record{}, fmt.Errorf("merge record fields: %w", err)
	}
	rec.UpdatedAt = s.now()

	if err = validateRecord(rec); err != nil {
		return models.Record{}, err
	}

	if err = s.records.Save(ctx, rec); err != nil {
		return models.Record{}, fmt.Errorf("save record locally: %w", err)
	}
	if err = s.orchestrator.TrackUpdate(ctx, id, partial); err != nil {
		return models.Record{}, fmt.Errorf("track update: %w", err)
	}

	return rec, nil
}

func (s *clientRecordService) Summary(ctx context.Context) (models.Summary, error) {
	live, err := s.GetAll(ctx)
	if err != nil {
		return models.Summary{}, err
	}

	var sum models.Summary
	for _, rec := range live {
		switch rec.Type {
		case models.Income:
			sum.Income = sum.Income.Add(rec.Amount)
		case models.Expense:
			sum.Expense = sum.Expense.Add(rec.Amount)
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	return sum, nil
}

func (s *clientRecordService) Delete(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record locally: %w", err)
	}
	if err := s.orchestrator.TrackDelete(ctx, id); err != nil {
		return fmt.Errorf("track delete: %w", err)
	}
	return nil
}

func validateRecord(rec models.Record) error {
	if !rec.Type.Valid() {
		return ErrValidationInvalidRecordType
	}
	if !rec.Amount.IsPositive() {
		return ErrValidationNonPositiveAmount
	}
	if rec.Category == "" {
		return ErrValidationNoCategory
	}
	if rec.LedgerID == "" {
		return ErrValidationNoLedger
	}
	if rec.Date.IsZero() {
		return ErrValidationNoDate
	}
	return nil
}
