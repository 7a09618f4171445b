package service

import (
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
)

// ClientServices aggregates the client-side sync engine and the record CRUD
// surface the application shell talks to.
type ClientServices struct {
	Orchestrator  SyncOrchestrator
	RecordService ClientRecordService
	SyncJob       ClientSyncJob
}

func NewClientServices(
	gateway adapter.SyncGateway,
	storages *store.ClientStorages,
	cfg *config.ClientConfig,
	logger *logger.Logger,
) *ClientServices {
	orchestrator := NewSyncOrchestrator(gateway, storages, cfg.Adapter.ServerURL, logger)

	return &ClientServices{
		Orchestrator:  orchestrator,
		RecordService: NewClientRecordService(storages.Records, orchestrator, logger),
		SyncJob:       NewClientSyncJob(orchestrator, gateway, cfg.Workers, logger),
	}
}
