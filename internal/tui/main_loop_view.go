package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
)

func (m mainLoopModel) View() string {
	switch {
	case m.formStage == formStageType:
		return appStyle.Render(m.viewFormType())
	case m.formStage == formStageFields:
		return appStyle.Render(m.viewFormFields())
	case m.detail:
		return appStyle.Render(m.viewDetail())
	default:
		return appStyle.Render(m.viewList())
	}
}

func (m mainLoopModel) viewList() string {
	var b strings.Builder

	if m.loading {
		b.WriteString("Загрузка...\n")
	} else if len(m.records) == 0 {
		b.WriteString("Записей нет. Нажмите 'a' чтобы добавить первую.\n")
	} else {
		for i, rec := range m.records {
			line := recordLine(rec)
			if i == m.idx {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Итого: %s  %s  баланс %s\n",
			incomeStyle.Render("+"+m.summary.Income.StringFixed(2)),
			expenseStyle.Render("-"+m.summary.Expense.StringFixed(2)),
			m.summary.Balance.StringFixed(2)))
	}

	hotKeys := "a: добавить │ e: изменить │ enter: детали │ ctrl+d: удалить │ s: синхронизация │ f: полная │ q: выход"
	return renderPage(titleStyle.Render("ЛИЧНАЯ БУХГАЛТЕРИЯ"), b.String(), hotKeys) + "\n" + m.viewStatusBar()
}

func (m mainLoopModel) viewDetail() string {
	rec, ok := m.current()
	if !ok {
		return renderPage("ЗАПИСЬ", "(не найдена)", "esc: назад") + "\n" + m.viewStatusBar()
	}

	var b strings.Builder
	b.WriteString("Тип       : " + recordTypeLabel(rec.Type) + "\n")
	b.WriteString("Сумма     : " + signedAmount(rec) + "\n")
	b.WriteString("Категория : " + rec.Category + "\n")
	b.WriteString("Дата      : " + rec.Date.String() + "\n")
	b.WriteString("Книга     : " + rec.LedgerID + "\n")
	b.WriteString("Заметка   : " + valueOrDash(rec.Note) + "\n")
	b.WriteString("\n")
	b.WriteString("Изменена  : " + rec.UpdatedAt.Local().Format("2006-01-02 15:04:05") + "\n")

	hotKeys := "e: изменить │ ctrl+d: удалить │ esc: назад"
	return renderPage(titleStyle.Render("ЗАПИСЬ"), b.String(), hotKeys) + "\n" + m.viewStatusBar()
}

func (m mainLoopModel) viewFormType() string {
	var b strings.Builder
	for i, t := range formTypeOptions {
		marker := "  "
		if i == m.formTypeIdx {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%d. %s\n", marker, i+1, recordTypeLabel(t)))
	}

	return renderPage(titleStyle.Render("НОВАЯ ЗАПИСЬ: ТИП"), b.String(), "enter: выбрать │ esc: отмена")
}

func (m mainLoopModel) viewFormFields() string {
	title := "НОВАЯ ЗАПИСЬ: " + recordTypeLabel(formTypeOptions[m.formTypeIdx])
	if m.formMode == formModeEdit {
		title = "ИЗМЕНЕНИЕ ЗАПИСИ"
	}

	labels := []string{"Сумма", "Категория", "Дата", "Заметка", "Книга"}

	var b strings.Builder
	for i, input := range m.formInputs {
		b.WriteString(fmt.Sprintf("%-10s: %s\n", labels[i], input.View()))
	}
	if m.formSaving {
		b.WriteString("\nСохранение...\n")
	}
	if m.formErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.formErr) + "\n")
	}

	return renderPage(titleStyle.Render(title), b.String(), "tab: след. поле │ enter: сохранить │ esc: отмена")
}

func (m mainLoopModel) viewStatusBar() string {
	parts := []string{"Состояние: " + syncStateLabel(m.syncState)}
	if m.pending > 0 {
		parts = append(parts, fmt.Sprintf("не отправлено: %d", m.pending))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}

	bar := helpStyle.Render("  " + strings.Join(parts, " │ "))
	if m.errMsg != "" {
		bar += "\n" + errorStyle.Render("  "+m.errMsg)
	}
	return bar
}

func recordLine(rec models.Record) string {
	note := ""
	if rec.Note != nil {
		note = "  " + fitText(*rec.Note, 24)
	}
	return fmt.Sprintf("%s  %-10s %-16s %s%s",
		rec.Date.String(), signedAmount(rec), fitText(rec.Category, 16), recordTypeLabel(rec.Type), note)
}

func signedAmount(rec models.Record) string {
	if rec.Type == models.Expense {
		return expenseStyle.Render("-" + rec.Amount.StringFixed(2))
	}
	return incomeStyle.Render("+" + rec.Amount.StringFixed(2))
}

func recordTypeLabel(t models.RecordType) string {
	switch t {
	case models.Income:
		return "Доход"
	case models.Expense:
		return "Расход"
	default:
		return "Неизвестно"
	}
}

func syncStateLabel(state models.SyncState) string {
	switch state {
	case models.SyncStateChecking:
		return "проверка сервера"
	case models.SyncStateSyncing:
		return "синхронизация"
	case models.SyncStateSuccess:
		return "синхронизировано"
	case models.SyncStateError:
		return "ошибка"
	case models.SyncStateOffline:
		return "офлайн"
	default:
		return "ожидание"
	}
}
