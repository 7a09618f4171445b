// Package client assembles the client runtime: restored sync state, the
// background sync job, and the terminal front end.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/tui"
)

type App struct {
	services *service.ClientServices
	tui      *tui.TUI
	logger   *logger.Logger
}

func NewApp(services *service.ClientServices, ui *tui.TUI, log *logger.Logger) (*App, error) {
	if services == nil || ui == nil {
		return nil, errors.New("client app requires services and ui")
	}
	return &App{services: services, tui: ui, logger: log}, nil
}

// Run restores the persisted sync state, launches the background sync job
// and hands control to the TUI until the user quits. A failed initial sync
// is logged and ignored: the engine is offline-first and the job retries.
func (a *App) Run() error {
	ctx := context.Background()

	if err := a.services.Orchestrator.Load(ctx); err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}

	if _, err := a.services.Orchestrator.Sync(ctx); err != nil {
		a.logger.Debug().Err(err).Msg("initial sync skipped")
	}

	a.services.SyncJob.Start(ctx)
	defer a.services.SyncJob.Stop()

	return a.tui.MainLoop(ctx)
}
