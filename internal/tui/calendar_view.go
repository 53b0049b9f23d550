package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/view"
)

func (m Model) layout(snap syncer.Snapshot) view.Layout {
	loc := m.ctrl.Location()
	return view.BuildLayout(view.Displayable(snap.Events, loc), m.mode, m.cursor, loc)
}

// dayItems returns the events on the cursor day.
func (m Model) dayItems(snap syncer.Snapshot) []view.Item {
	day, ok := m.layout(snap).Day(m.cursor)
	if !ok {
		return nil
	}
	return day.Items
}

func (m *Model) clampSelection() {
	n := len(m.dayItems(m.ctrl.Snapshot()))
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) renderCalendarView() string {
	snap := m.ctrl.Snapshot()
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.title))
	s.WriteString("\n")
	s.WriteString(m.renderAccountLine(snap))
	s.WriteString("\n\n")

	l := m.layout(snap)
	if m.mode == view.ModeMonth {
		s.WriteString(view.RenderMonth(l, m.cursor, m.now()))
		s.WriteString("\n")
	}
	s.WriteString(view.RenderAgenda(l, m.cursor, m.selected))

	switch {
	case snap.Error != "":
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(snap.Error))
	case m.busy || snap.State == syncer.StateLoading:
		s.WriteString("\nLoading events...")
	case m.status != "":
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(m.renderCalendarHelp(snap))
	return s.String()
}

func (m Model) renderAccountLine(snap syncer.Snapshot) string {
	if m.user == "" {
		return userStyle.Render("Not signed in. Press L to sign in.")
	}
	line := "Welcome, " + m.user
	if !snap.Elevated {
		line += " (read-only)"
	}
	return userStyle.Render(line)
}

func (m Model) renderCalendarHelp(snap syncer.Snapshot) string {
	help := []string{
		"←/→/↑/↓: Move",
		"</>: Month",
		"t: Today",
		"Tab: " + m.mode.Next().String() + " view",
		"[/]: Select event",
	}
	if snap.Elevated {
		help = append(help, "n: New", "Enter: Edit", "d: Delete")
	}
	help = append(help, "r: Refresh")
	if m.user == "" {
		help = append(help, "L: Sign in")
	} else {
		help = append(help, "O: Sign out")
	}
	help = append(help, "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		return m.moveCursor(m.cursor.AddDate(0, 0, -1))
	case "right", "l":
		return m.moveCursor(m.cursor.AddDate(0, 0, 1))
	case "up", "k":
		return m.moveCursor(m.cursor.AddDate(0, 0, -7))
	case "down", "j":
		return m.moveCursor(m.cursor.AddDate(0, 0, 7))
	case "<", "pgup":
		return m.moveCursor(m.cursor.AddDate(0, -1, 0))
	case ">", "pgdown":
		return m.moveCursor(m.cursor.AddDate(0, 1, 0))
	case "t":
		return m.moveCursor(m.now().In(m.ctrl.Location()))
	case "tab":
		m.mode = m.mode.Next()
		return m, nil
	case "[":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "]":
		if m.selected < len(m.dayItems(snap))-1 {
			m.selected++
		}
		return m, nil
	case "r":
		m.status = ""
		return m, m.refresh()
	case "esc":
		m.ctrl.ClearError()
		m.status = ""
		return m, nil
	case "L":
		if m.session == nil {
			return m, nil
		}
		return m, m.signIn()
	case "O":
		if m.session == nil || m.user == "" {
			return m, nil
		}
		return m, m.signOut()
	case "n":
		return m.newEvent()
	case "enter":
		items := m.dayItems(snap)
		if m.selected >= len(items) {
			return m, nil
		}
		if !m.ctrl.SelectExisting(items[m.selected].Event) {
			m.status = "You do not have permission to edit events."
			return m, nil
		}
		return m.enterEditor()
	case "d":
		items := m.dayItems(snap)
		if m.selected >= len(items) {
			return m, nil
		}
		if !snap.Elevated {
			m.status = "You do not have permission to delete events."
			return m, nil
		}
		m.deleteID = items[m.selected].Event.ID
		m.deleteReturn = ViewCalendar
		m.viewMode = ViewConfirmDelete
		return m, nil
	}
	return m, nil
}

// moveCursor moves to t and reloads when t leaves the loaded month.
func (m Model) moveCursor(t time.Time) (tea.Model, tea.Cmd) {
	prev := m.cursor
	m.cursor = t
	m.selected = 0

	if prev.Year() == t.Year() && prev.Month() == t.Month() {
		return m, nil
	}
	m.ctrl.ShowMonth(t)
	return m, m.refresh()
}

// newEvent opens a draft: now to now+1h on today, otherwise 09:00 to 10:00
// on the cursor day.
func (m Model) newEvent() (tea.Model, tea.Cmd) {
	loc := m.ctrl.Location()
	now := m.now().In(loc)

	var ok bool
	if y, mo, d := now.Date(); y == m.cursor.Year() && mo == m.cursor.Month() && d == m.cursor.Day() {
		ok = m.ctrl.NewEvent()
	} else {
		start := time.Date(m.cursor.Year(), m.cursor.Month(), m.cursor.Day(), 9, 0, 0, 0, loc)
		ok = m.ctrl.SelectSlot(start, start.Add(time.Hour))
	}
	if !ok {
		m.status = "You do not have permission to create events."
		return m, nil
	}
	return m.enterEditor()
}

func (m Model) enterEditor() (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()
	if snap.Editing == nil {
		return m, nil
	}
	m.status = ""
	m.initFormInputs(*snap.Editing)
	m.viewMode = ViewEdit
	return m, textinput.Blink
}
