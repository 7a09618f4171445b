package tui

import (
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

type listLoadedMsg struct {
	records []models.Record
	summary models.Summary
	err     error
}

type syncDoneMsg struct {
	report models.SyncReport
	err    error
}

type fullSyncDoneMsg struct {
	report models.SyncReport
	err    error
}

type createDoneMsg struct {
	err error
}

type updateDoneMsg struct {
	err error
}

type deleteDoneMsg struct {
	err error
}

// syncStateMsg is pushed into the program from the orchestrator's
// state-change callback, including transitions triggered by the
// background sync job.
type syncStateMsg struct {
	state   models.SyncState
	pending int
}
