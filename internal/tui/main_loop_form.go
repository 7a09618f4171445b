package tui

import (
	"strings"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

const (
	formFieldAmount = iota
	formFieldCategory
	formFieldDate
	formFieldNote
	formFieldLedger
)

func (m *mainLoopModel) startAdd() {
	m.formMode = formModeAdd
	m.formStage = formStageType
	m.formTypeIdx = 0
	m.formErr = ""
	m.status = ""
	m.errMsg = ""
}

func (m *mainLoopModel) startEdit(rec models.Record) {
	m.formMode = formModeEdit
	m.formStage = formStageFields
	m.formErr = ""
	m.status = ""
	m.errMsg = ""
	m.editID = rec.ID

	if rec.Type == models.Expense {
		m.formTypeIdx = 1
	} else {
		m.formTypeIdx = 0
	}

	note := ""
	if rec.Note != nil {
		note = *rec.Note
	}

	m.initFormInputs(rec.Amount.String(), rec.Category, rec.Date.String(), note, rec.LedgerID)
}

func (m *mainLoopModel) resetForm() {
	m.formStage = formStageNone
	m.formInputs = nil
	m.formFocus = 0
	m.formErr = ""
	m.formSaving = false
	m.editID = ""
}

func (m *mainLoopModel) initFormInputs(amount, category, date, note, ledger string) {
	amountInput := textinput.New()
	amountInput.Placeholder = "Сумма"
	amountInput.Width = 40
	amountInput.SetValue(amount)
	amountInput.Focus()

	categoryInput := textinput.New()
	categoryInput.Placeholder = "Категория"
	categoryInput.Width = 40
	categoryInput.SetValue(category)

	dateInput := textinput.New()
	dateInput.Placeholder = "Дата (гггг-мм-дд)"
	dateInput.Width = 40
	dateInput.SetValue(date)

	noteInput := textinput.New()
	noteInput.Placeholder = "Заметка (можно пусто)"
	noteInput.Width = 40
	noteInput.SetValue(note)

	ledgerInput := textinput.New()
	ledgerInput.Placeholder = "Книга учёта"
	ledgerInput.Width = 40
	ledgerInput.SetValue(ledger)

	m.formInputs = []textinput.Model{amountInput, categoryInput, dateInput, noteInput, ledgerInput}
	m.formFocus = 0
}

func (m mainLoopModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.formStage {
	case formStageType:
		return m.updateFormType(msg)
	case formStageFields:
		return m.updateFormFields(msg)
	default:
		return m, nil
	}
}

func (m mainLoopModel) updateFormType(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		m.resetForm()
		return m, nil
	case "up":
		if m.formTypeIdx > 0 {
			m.formTypeIdx--
		}
	case "down":
		if m.formTypeIdx < len(formTypeOptions)-1 {
			m.formTypeIdx++
		}
	case "1", "2":
		m.formTypeIdx = int(keyMsg.String()[0] - '1')
		m.selectFormType()
		return m, nil
	case "enter":
		m.selectFormType()
		return m, nil
	}

	return m, nil
}

func (m *mainLoopModel) selectFormType() {
	m.formErr = ""
	m.formStage = formStageFields
	m.initFormInputs("", "", models.DateOf(time.Now()).String(), "", "default")
}

func (m mainLoopModel) updateFormFields(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			m.resetForm()
			return m, nil
		case "tab", "down":
			m.formInputs[m.formFocus].Blur()
			m.formFocus = (m.formFocus + 1) % len(m.formInputs)
			m.formInputs[m.formFocus].Focus()
			return m, nil
		case "shift+tab", "up":
			m.formInputs[m.formFocus].Blur()
			m.formFocus = (m.formFocus - 1 + len(m.formInputs)) % len(m.formInputs)
			m.formInputs[m.formFocus].Focus()
			return m, nil
		case "enter":
			if m.formSaving {
				return m, nil
			}
			return m.submitForm()
		}
	}

	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

func (m mainLoopModel) submitForm() (tea.Model, tea.Cmd) {
	rec, errMsg := m.parseForm()
	if errMsg != "" {
		m.formErr = errMsg
		return m, nil
	}

	m.formErr = ""
	m.formSaving = true

	if m.formMode == formModeEdit {
		return m, m.cmdUpdate(m.editID, rec)
	}
	return m, m.cmdCreate(rec)
}

// parseForm validates the field inputs and assembles a record. For edits
// the result is a partial: the record service folds its non-zero fields
// into the stored record.
func (m mainLoopModel) parseForm() (models.Record, string) {
	rec := models.Record{Type: formTypeOptions[m.formTypeIdx]}

	amountText := strings.TrimSpace(m.formInputs[formFieldAmount].Value())
	if amountText == "" {
		return rec, "Сумма обязательна"
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return rec, "Неверная сумма: " + amountText
	}
	if !amount.IsPositive() {
		return rec, "Сумма должна быть больше нуля"
	}
	rec.Amount = amount

	rec.Category = strings.TrimSpace(m.formInputs[formFieldCategory].Value())
	if rec.Category == "" {
		return rec, "Категория обязательна"
	}

	dateText := strings.TrimSpace(m.formInputs[formFieldDate].Value())
	if dateText == "" {
		return rec, "Дата обязательна"
	}
	parsed, err := time.Parse("2006-01-02", dateText)
	if err != nil {
		return rec, "Неверная дата, формат гггг-мм-дд"
	}
	rec.Date = models.DateOf(parsed)

	if note := strings.TrimSpace(m.formInputs[formFieldNote].Value()); note != "" {
		rec.Note = &note
	}

	rec.LedgerID = strings.TrimSpace(m.formInputs[formFieldLedger].Value())
	if rec.LedgerID == "" {
		return rec, "Книга учёта обязательна"
	}

	return rec, ""
}
