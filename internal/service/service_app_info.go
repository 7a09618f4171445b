package service

import (
	"context"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

const serviceName = "personal-accounting-sync"

type appInfoService struct {
	appVersion string

	logger *logger.Logger
}

func NewAppInfoService(cfg config.App, logger *logger.Logger) AppInfoService {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	return &appInfoService{
		appVersion: version,
		logger:     logger,
	}
}

func (s *appInfoService) Ping(ctx context.Context) models.PingResponse {
	return models.PingResponse{
		Service: serviceName,
		Version: s.appVersion,
		Status:  "ok",
	}
}
