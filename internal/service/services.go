// Package service contains the business logic of the application: the
// server-side sync gateway applying pushed batches under the version
// counter, and the client-side sync engine (change tracker, diff-merge
// engine, orchestrator and background job) that keeps an offline-capable
// local store converging with the server.
package service

import (
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
)

// Services aggregates the server-side services.
type Services struct {
	SyncService    SyncService
	AppInfoService AppInfoService
}

func NewServices(storages *store.Storages, cfg *config.StructuredConfig, logger *logger.Logger) *Services {
	return &Services{
		SyncService:    NewSyncService(storages.Records, logger),
		AppInfoService: NewAppInfoService(cfg.App, logger),
	}
}
