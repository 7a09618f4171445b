// Package tui is the terminal front end of the bookkeeping client: a record
// list with add, edit and delete forms, plus a status bar fed live by the
// sync engine.
package tui

import (
	"context"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	tea "github.com/charmbracelet/bubbletea"
)

type TUI struct {
	services *service.ClientServices
}

func New(services *service.ClientServices, _ *logger.Logger) (*TUI, error) {
	return &TUI{services: services}, nil
}

// MainLoop runs the record screen until the user quits. Sync state
// transitions, including those of background cycles, are forwarded into
// the running program so the status bar stays current.
func (t *TUI) MainLoop(ctx context.Context) error {
	model := newMainLoopModel(ctx, t.services)
	program := tea.NewProgram(model, tea.WithAltScreen())

	t.services.Orchestrator.SetOnStateChange(func(state models.SyncState, pending int) {
		program.Send(syncStateMsg{state: state, pending: pending})
	})

	_, err := program.Run()
	return err
}
