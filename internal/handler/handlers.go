// Package handler aggregates the transport handlers of the sync server.
package handler

import (
	"errors"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/handler/http"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
)

var errNoHandlersAreCreated = errors.New("no handlers are created")

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, cfg *config.StructuredConfig, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	handlers := &Handlers{}

	if cfg.Server.HTTPAddress != "" {
		handlers.HTTP = http.NewHandler(services, cfg.Auth, logger)
	}

	if handlers.HTTP == nil {
		return nil, errNoHandlersAreCreated
	}

	return handlers, nil
}
