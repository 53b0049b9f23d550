// Package tui is the interactive terminal calendar built with bubbletea.
//
// The model never owns event data: every frame is drawn from the controller
// snapshot, and every remote operation runs as a tea.Cmd against the
// controller.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teemow/groupcal/internal/form"
	"github.com/teemow/groupcal/internal/session"
	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/view"
)

// ViewMode is the screen being shown.
type ViewMode int

const (
	ViewCalendar ViewMode = iota
	ViewEdit
	ViewConfirmDelete
)

// Session signs the user in and out.
type Session interface {
	Account(ctx context.Context) (session.Account, error)
	SignIn(ctx context.Context) (session.Account, error)
	SignOut(ctx context.Context) error
}

// Options configures a Model.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Title is shown in the header.
	Title string
}

// Model is the bubbletea model.
type Model struct {
	ctx     context.Context
	ctrl    *syncer.Controller
	session Session
	now     func() time.Time
	title   string

	viewMode ViewMode
	mode     view.Mode
	cursor   time.Time
	selected int

	// Edit view state
	form       form.State
	formInputs []textinput.Model
	focusIndex int
	formErr    string

	// Delete confirmation state
	deleteID     string
	deleteReturn ViewMode

	user   string
	status string
	busy   bool

	width  int
	height int
}

// New returns a Model showing the current month.
func New(ctx context.Context, ctrl *syncer.Controller, sess Session, opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	title := opts.Title
	if title == "" {
		title = "Group Calendar"
	}
	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		session:  sess,
		now:      now,
		title:    title,
		viewMode: ViewCalendar,
		mode:     view.ModeMonth,
		cursor:   now().In(ctrl.Location()),
		busy:     true, // Init fetches the month
		width:    80,
		height:   24,
	}
}

// Init loads the account name and fetches the current month. The busy flag
// for that first fetch is set by New since Init works on a copy.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadAccount(), m.refresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case accountMsg:
		m.user = msg.name
		return m, nil
	case refreshedMsg:
		m.busy = false
		m.clampSelection()
		return m, nil
	case savedMsg:
		m.busy = false
		if msg.err != nil {
			m.formErr = m.ctrl.Snapshot().Error
			return m, nil
		}
		m.status = "Event saved"
		m.leaveEditor()
		m.clampSelection()
		return m, nil
	case deletedMsg:
		m.busy = false
		if msg.err != nil {
			m.viewMode = m.deleteReturn
			if m.viewMode == ViewEdit {
				m.formErr = m.ctrl.Snapshot().Error
			}
			return m, nil
		}
		m.status = "Event deleted"
		m.leaveEditor()
		m.clampSelection()
		return m, nil
	case signedInMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Sign-in failed: " + msg.err.Error()
			return m, nil
		}
		m.user = msg.account.Username
		m.status = ""
		return m, m.refresh()
	case signedOutMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Sign-out failed: " + msg.err.Error()
			return m, nil
		}
		m.ctrl.Reset()
		m.user = ""
		m.leaveEditor()
		m.status = "Signed out"
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewEdit:
		return m.renderEditView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return m.renderCalendarView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}
	return m.handleCalendarKeys(msg)
}

func (m *Model) leaveEditor() {
	m.viewMode = ViewCalendar
	m.formInputs = nil
	m.formErr = ""
	m.deleteID = ""
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)
