// Package http implements the HTTP transport layer of the sync server: the
// chi router, the bearer-token authentication middleware, request logging,
// and the JSON handlers of the sync protocol. Requests are authenticated
// and annotated here before they reach the service layer.
package http

import (
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
)

type Handler struct {
	services *service.Services
	auth     config.Auth

	logger *logger.Logger
}

func NewHandler(services *service.Services, auth config.Auth, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		auth:     auth,
		logger:   logger,
	}
}
