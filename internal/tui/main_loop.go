package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formStage int

const (
	formStageNone formStage = iota
	formStageType
	formStageFields
)

type formMode int

const (
	formModeAdd formMode = iota
	formModeEdit
)

type mainLoopModel struct {
	ctx      context.Context
	services *service.ClientServices

	records []models.Record
	summary models.Summary
	idx     int
	loading bool
	syncing bool
	status  string
	errMsg  string
	detail  bool

	syncState models.SyncState
	pending   int

	formStage   formStage
	formMode    formMode
	formTypeIdx int
	formInputs  []textinput.Model
	formFocus   int
	formErr     string
	formSaving  bool
	editID      string
}

var formTypeOptions = []models.RecordType{models.Income, models.Expense}

func newMainLoopModel(ctx context.Context, services *service.ClientServices) mainLoopModel {
	return mainLoopModel{
		ctx:       ctx,
		services:  services,
		loading:   true,
		syncState: services.Orchestrator.State(),
		pending:   services.Orchestrator.PendingCount(),
	}
}

func (m mainLoopModel) Init() tea.Cmd {
	return m.cmdLoadRecords()
}

func (m mainLoopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.records = msg.records
		m.summary = msg.summary
		if m.idx >= len(m.records) {
			m.idx = len(m.records) - 1
		}
		if m.idx < 0 {
			m.idx = 0
		}
		return m, nil
	case syncStateMsg:
		m.syncState = msg.state
		m.pending = msg.pending
		return m, nil
	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.status = ""
			m.errMsg = syncErrorMessage(msg.err)
			return m, nil
		}
		m.status = syncReportMessage(msg.report)
		m.errMsg = ""
		m.loading = true
		return m, m.cmdLoadRecords()
	case fullSyncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.status = ""
			m.errMsg = syncErrorMessage(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("Полная синхронизация завершена: получено записей: %d", msg.report.Pulled)
		m.errMsg = ""
		m.loading = true
		return m, m.cmdLoadRecords()
	case createDoneMsg:
		m.formSaving = false
		if msg.err != nil {
			m.formErr = msg.err.Error()
			return m, nil
		}
		m.resetForm()
		m.status = "Запись добавлена"
		m.errMsg = ""
		m.loading = true
		return m, m.cmdLoadRecords()
	case updateDoneMsg:
		m.formSaving = false
		if msg.err != nil {
			m.formErr = msg.err.Error()
			return m, nil
		}
		m.resetForm()
		m.status = "Запись обновлена"
		m.errMsg = ""
		m.loading = true
		return m, m.cmdLoadRecords()
	case deleteDoneMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Ошибка удаления: %v", msg.err)
			return m, nil
		}
		m.status = "Запись удалена"
		m.errMsg = ""
		m.loading = true
		return m, m.cmdLoadRecords()
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.formStage != formStageNone {
			return m.updateForm(msg)
		}
		return m, nil
	}

	if keyMsg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.formStage != formStageNone {
		return m.updateForm(msg)
	}

	if m.detail {
		return m.updateDetail(keyMsg)
	}

	switch keyMsg.String() {
	case "q":
		return m, tea.Quit
	case "up":
		if m.idx > 0 {
			m.idx--
		}
	case "down":
		if m.idx < len(m.records)-1 {
			m.idx++
		}
	case "a":
		m.startAdd()
		return m, nil
	case "e":
		rec, ok := m.current()
		if !ok {
			m.status = "Нет записей"
			return m, nil
		}
		m.startEdit(rec)
		return m, nil
	case "enter":
		if _, ok := m.current(); !ok {
			m.status = "Нет записей"
			return m, nil
		}
		m.detail = true
	case "ctrl+d":
		rec, ok := m.current()
		if !ok {
			m.status = "Нет записей"
			return m, nil
		}
		return m, m.cmdDelete(rec.ID)
	case "s":
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.status = "Синхронизация..."
		m.errMsg = ""
		return m, m.cmdSync()
	case "f":
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.status = "Полная синхронизация..."
		m.errMsg = ""
		return m, m.cmdFullSync()
	}

	return m, nil
}

func (m mainLoopModel) updateDetail(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rec, ok := m.current()
	if !ok {
		m.detail = false
		return m, nil
	}

	switch keyMsg.String() {
	case "esc", "q":
		m.detail = false
	case "e":
		m.detail = false
		m.startEdit(rec)
	case "ctrl+d":
		m.detail = false
		return m, m.cmdDelete(rec.ID)
	}
	return m, nil
}

func (m mainLoopModel) current() (models.Record, bool) {
	if len(m.records) == 0 || m.idx < 0 || m.idx >= len(m.records) {
		return models.Record{}, false
	}
	return m.records[m.idx], true
}

func (m mainLoopModel) cmdLoadRecords() tea.Cmd {
	return func() tea.Msg {
		records, err := m.services.RecordService.GetAll(m.ctx)
		if err != nil {
			return listLoadedMsg{err: err}
		}
		summary, err := m.services.RecordService.Summary(m.ctx)
		return listLoadedMsg{records: records, summary: summary, err: err}
	}
}

func (m mainLoopModel) cmdSync() tea.Cmd {
	return func() tea.Msg {
		report, err := m.services.Orchestrator.Sync(m.ctx)
		return syncDoneMsg{report: report, err: err}
	}
}

func (m mainLoopModel) cmdFullSync() tea.Cmd {
	return func() tea.Msg {
		report, err := m.services.Orchestrator.FullSync(m.ctx)
		return fullSyncDoneMsg{report: report, err: err}
	}
}

func (m mainLoopModel) cmdCreate(rec models.Record) tea.Cmd {
	return func() tea.Msg {
		_, err := m.services.RecordService.Create(m.ctx, rec)
		return createDoneMsg{err: err}
	}
}

func (m mainLoopModel) cmdUpdate(id string, partial models.Record) tea.Cmd {
	return func() tea.Msg {
		_, err := m.services.RecordService.Update(m.ctx, id, partial)
		return updateDoneMsg{err: err}
	}
}

func (m mainLoopModel) cmdDelete(id string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{err: m.services.RecordService.Delete(m.ctx, id)}
	}
}

func syncErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSyncInFlight):
		return "Синхронизация уже выполняется"
	case errors.Is(err, service.ErrOffline), errors.Is(err, adapter.ErrNetwork):
		return "Синхронизация не выполнена. Отсутствует сеть или Сервер недоступен"
	case errors.Is(err, adapter.ErrUnauthorized):
		return "Синхронизация не выполнена. Клиент не авторизован"
	}
	return fmt.Sprintf("Ошибка синхронизации: %v", err)
}

func syncReportMessage(report models.SyncReport) string {
	pushed := report.Created + report.Updated + report.Deleted
	msg := fmt.Sprintf("Синхронизация завершена: получено %d, отправлено %d", report.Pulled, pushed)
	if len(report.Conflicts) > 0 {
		msg += fmt.Sprintf(", конфликтов: %d", len(report.Conflicts))
	}
	return msg
}
