package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teemow/groupcal/internal/form"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) deleteSubject() string {
	if m.form.ID == m.deleteID && m.form.Subject != "" {
		return m.form.Subject
	}
	for _, ev := range m.ctrl.Snapshot().Events {
		if ev.ID == m.deleteID {
			return ev.Subject
		}
	}
	return ""
}

func (m Model) renderConfirmDeleteView() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		warningStyle.Render("DELETE EVENT"),
		"",
		form.DeletePrompt,
		"",
		m.deleteSubject(),
		"",
		lipgloss.JoinHorizontal(
			lipgloss.Left,
			confirmButtonStyle.Render("Yes, Delete (y)"),
			cancelButtonStyle.Render("Cancel (n/esc)"),
		),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		confirmBoxStyle.Render(content))
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.busy {
			return m, nil
		}
		if m.deleteID == "" {
			m.viewMode = m.deleteReturn
			return m, nil
		}
		return m, m.remove(m.deleteID)
	case "n", "N", "esc":
		m.viewMode = m.deleteReturn
		m.deleteID = ""
	}
	return m, nil
}
