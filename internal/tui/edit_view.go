package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/form"
	"github.com/teemow/groupcal/internal/view"
)

func (m Model) renderEditView() string {
	var s strings.Builder

	title := m.form.Title()
	if m.form.IsNew {
		title += " (new slot)"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	if m.form.TimeZone != "" {
		s.WriteString(helpStyle.Render("Times are in " + m.form.TimeZone))
		s.WriteString("\n")
	}
	if m.form.WebLink != "" {
		s.WriteString(helpStyle.Render("Open in Outlook: " + m.form.WebLink))
		s.WriteString("\n")
	}

	if m.formErr != "" {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(m.formErr))
		s.WriteString("\n")
	} else if m.busy {
		s.WriteString("\nSaving...\n")
	}

	s.WriteString(m.renderEditHelp())
	s.WriteString(m.renderDraftDay())
	return s.String()
}

// renderDraftDay shows a new draft on its day among the loaded events.
func (m Model) renderDraftDay() string {
	snap := m.ctrl.Snapshot()
	if snap.Editing == nil || !snap.Editing.IsNew {
		return ""
	}
	loc := m.ctrl.Location()
	start, err := snap.Editing.Start.Time(loc)
	if err != nil {
		return ""
	}
	items := view.WithDraft(view.Displayable(snap.Events, loc), snap.Editing, loc)
	return "\n\n" + view.RenderAgenda(view.BuildLayout(items, view.ModeDay, start, loc), start, -1)
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Ctrl+S: Save",
	}
	if m.form.Persisted() {
		help = append(help, "Ctrl+D: Delete")
	}
	help = append(help, "Esc: Cancel")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.CloseEditor()
		m.leaveEditor()
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		return m, m.updateFormFocus()
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		return m, m.updateFormFocus()
	case "enter":
		if m.focusIndex < len(m.formInputs)-1 {
			m.focusIndex++
			return m, m.updateFormFocus()
		}
		return m.submit()
	case "ctrl+s":
		return m.submit()
	case "ctrl+d":
		if !m.form.Persisted() {
			return m, nil
		}
		m.deleteID = m.form.ID
		m.deleteReturn = ViewEdit
		m.viewMode = ViewConfirmDelete
		return m, nil
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	for i, f := range form.Fields {
		m.form.Set(f, m.formInputs[i].Value())
	}
	ev, err := m.form.Submit()
	if err != nil {
		m.formErr = err.Error()
		return m, nil
	}
	m.formErr = ""
	return m, m.save(ev)
}

// initFormInputs rebuilds the form from ev. Nothing survives from a
// previously edited event.
func (m *Model) initFormInputs(ev calendar.Event) {
	m.form = form.FromEvent(ev)
	m.formErr = ""

	inputs := make([]textinput.Model, len(form.Fields))
	for i, f := range form.Fields {
		inputs[i] = textinput.New()
		inputs[i].Prompt = f.String() + ": "
		inputs[i].CharLimit = 500
		inputs[i].SetValue(m.form.Value(f))
		switch f {
		case form.FieldStart, form.FieldEnd:
			inputs[i].Placeholder = "2006-01-02T15:04"
			inputs[i].CharLimit = 16
		case form.FieldOnline:
			inputs[i].CharLimit = 3
		}
	}
	m.formInputs = inputs
	m.focusIndex = 0
	m.updateFormFocus()
}

func (m *Model) updateFormFocus() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.formInputs {
		if i == m.focusIndex {
			cmd = m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
	return cmd
}
