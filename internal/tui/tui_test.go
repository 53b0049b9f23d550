package tui

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/form"
	"github.com/teemow/groupcal/internal/session"
	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/view"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

type tokens struct{}

func (tokens) AccessToken(context.Context) (string, error) { return "tok", nil }

type roles struct{ elevated bool }

func (r roles) Resolve(context.Context, string) (bool, error) { return r.elevated, nil }

type remote struct {
	mu        sync.Mutex
	events    []calendar.Event
	deleteErr error
	lastStart time.Time
	created   int
}

func (r *remote) ListEvents(_ context.Context, _ string, start, _ time.Time) ([]calendar.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastStart = start
	return append([]calendar.Event(nil), r.events...), nil
}

func (r *remote) CreateEvent(_ context.Context, _ string, draft calendar.Event) (calendar.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	draft.ID = fmt.Sprintf("new-%d", r.created)
	draft.IsNew = false
	r.events = append(r.events, draft)
	return draft, nil
}

func (r *remote) UpdateEvent(context.Context, string, string, calendar.Patch) error { return nil }

func (r *remote) DeleteEvent(_ context.Context, _ string, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i, ev := range r.events {
		if ev.ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return &calendar.RemoteCallFailed{Status: 404, Message: "not found"}
}

type fakeSession struct {
	account  session.Account
	signOuts int
}

func (f *fakeSession) Account(context.Context) (session.Account, error) {
	if f.account.IsZero() {
		return session.Account{}, session.ErrNoActiveSession
	}
	return f.account, nil
}

func (f *fakeSession) SignIn(context.Context) (session.Account, error) {
	f.account = session.Account{ID: "1", Username: "jane@contoso.com"}
	return f.account, nil
}

func (f *fakeSession) SignOut(context.Context) error {
	f.signOuts++
	f.account = session.Account{}
	return nil
}

func newModel(t *testing.T, elevated bool) (Model, *remote, *fakeSession, *syncer.Controller) {
	t.Helper()
	r := &remote{events: []calendar.Event{
		{ID: "a", Subject: "Standup", Start: calendar.DateTimeZone{DateTime: "2024-06-03T09:00:00", TimeZone: "UTC"}, End: calendar.DateTimeZone{DateTime: "2024-06-03T09:15:00", TimeZone: "UTC"}},
		{ID: "b", Subject: "Retro", Start: calendar.DateTimeZone{DateTime: "2024-06-15T15:00:00", TimeZone: "UTC"}, End: calendar.DateTimeZone{DateTime: "2024-06-15T16:00:00", TimeZone: "UTC"}},
	}}
	ctrl := syncer.New(tokens{}, roles{elevated: elevated}, r, syncer.Options{
		TimeZone: "UTC",
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	sess := &fakeSession{account: session.Account{ID: "1", Username: "jane@contoso.com"}}
	m := New(context.Background(), ctrl, sess, Options{Now: func() time.Time { return fixedNow }})
	m = run(t, m, m.Init())
	return m, r, sess, ctrl
}

// exec runs cmd, giving up on commands that wait, such as cursor blinks.
func exec(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := exec(cmd)
	switch msg := msg.(type) {
	case nil, tea.QuitMsg:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
		return m
	default:
		next, cmd := m.Update(msg)
		return run(t, next.(Model), cmd)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = run(t, next.(Model), cmd)
	}
	return m
}

func TestInit_LoadsMonthAndAccount(t *testing.T) {
	m, _, _, ctrl := newModel(t, true)

	assert.Equal(t, syncer.StateReady, ctrl.Snapshot().State)
	out := m.View()
	assert.Contains(t, out, "Welcome, jane@contoso.com")
	assert.Contains(t, out, "June 2024")
	assert.Contains(t, out, "Retro")
	assert.NotContains(t, out, "read-only")
}

func TestFirstFrameShowsLoading(t *testing.T) {
	r := &remote{}
	ctrl := syncer.New(tokens{}, roles{elevated: true}, r, syncer.Options{
		TimeZone: "UTC",
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	m := New(context.Background(), ctrl, &fakeSession{}, Options{Now: func() time.Time { return fixedNow }})

	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "Loading events...")

	m = run(t, m, m.Init())
	assert.False(t, m.busy)
	assert.NotContains(t, m.View(), "Loading events...")
}

func TestReadOnlyUserCannotEdit(t *testing.T) {
	m, _, _, ctrl := newModel(t, false)

	m = press(t, m, "n")
	assert.Equal(t, ViewCalendar, m.viewMode)
	assert.Contains(t, m.status, "permission")
	assert.False(t, ctrl.Snapshot().EditorOpen())

	m = press(t, m, "d")
	assert.Equal(t, ViewCalendar, m.viewMode)
	assert.Contains(t, m.View(), "(read-only)")
}

func TestCreateEvent(t *testing.T) {
	m, r, _, ctrl := newModel(t, true)

	m = press(t, m, "n")
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Contains(t, m.View(), "Create New Event (new slot)")
	assert.Equal(t, "2024-06-15T10:30", m.formInputs[1].Value())
	assert.Equal(t, "2024-06-15T11:30", m.formInputs[2].Value())

	// empty subject is rejected locally
	m = press(t, m, "ctrl+s")
	assert.Equal(t, ViewEdit, m.viewMode)
	assert.Contains(t, m.formErr, "subject")
	assert.Zero(t, r.created)

	m = press(t, m, "S", "y", "n", "c", "ctrl+s")
	assert.Equal(t, ViewCalendar, m.viewMode)
	assert.Equal(t, 1, r.created)
	assert.Equal(t, "Event saved", m.status)
	assert.False(t, ctrl.Snapshot().EditorOpen())
	assert.Len(t, ctrl.Snapshot().Events, 3)
}

func TestNewDraftShownAmongDayEvents(t *testing.T) {
	m, _, _, _ := newModel(t, true)

	m = press(t, m, "n")
	require.Equal(t, ViewEdit, m.viewMode)
	out := m.View()
	assert.Contains(t, out, "(no subject) (new)")
	assert.Contains(t, out, "Retro")

	m = press(t, m, "esc")
	assert.NotContains(t, m.View(), "(new)")
}

func TestNewEventOnOtherDayUsesMorningSlot(t *testing.T) {
	m, _, _, ctrl := newModel(t, true)
	m.cursor = time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	m = press(t, m, "n")
	require.True(t, ctrl.Snapshot().EditorOpen())
	assert.Equal(t, "2024-06-20T09:00", ctrl.Snapshot().Editing.Start.DateTime)
	assert.Equal(t, "2024-06-20T10:00", m.form.End)
}

func TestEditAndCancel(t *testing.T) {
	m, _, _, ctrl := newModel(t, true)
	m.cursor = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	m = press(t, m, "enter")
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Contains(t, m.View(), "Edit Event")
	assert.Equal(t, "Standup", m.formInputs[0].Value())
	assert.Equal(t, "a", m.form.ID)

	m = press(t, m, "esc")
	assert.Equal(t, ViewCalendar, m.viewMode)
	assert.False(t, ctrl.Snapshot().EditorOpen())
}

func TestDeleteWithConfirmation(t *testing.T) {
	m, r, _, ctrl := newModel(t, true)
	m.cursor = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	m = press(t, m, "d")
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), form.DeletePrompt)

	m = press(t, m, "n")
	assert.Equal(t, ViewCalendar, m.viewMode)
	assert.Len(t, r.events, 2)

	m = press(t, m, "d", "y")
	assert.Equal(t, ViewCalendar, m.viewMode)
	assert.Equal(t, "Event deleted", m.status)
	assert.Len(t, ctrl.Snapshot().Events, 1)
}

func TestDeleteFailureKeepsEvents(t *testing.T) {
	m, r, _, ctrl := newModel(t, true)
	r.deleteErr = &calendar.RemoteCallFailed{Status: 404, Message: "gone"}
	m.cursor = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	m = press(t, m, "enter", "ctrl+d", "y")
	assert.Equal(t, ViewEdit, m.viewMode)
	assert.Contains(t, m.formErr, "(404)")
	assert.Len(t, ctrl.Snapshot().Events, 2)
	assert.True(t, ctrl.Snapshot().EditorOpen())
}

func TestNavigation(t *testing.T) {
	m, r, _, _ := newModel(t, true)

	m = press(t, m, "tab")
	assert.Equal(t, view.ModeWeek, m.mode)
	assert.Contains(t, m.View(), "Week of")

	m = press(t, m, "tab", "tab")
	assert.Equal(t, view.ModeMonth, m.mode)

	m = press(t, m, ">")
	assert.Equal(t, time.July, m.cursor.Month())
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), r.lastStart)

	m = press(t, m, "t")
	assert.Equal(t, time.June, m.cursor.Month())
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), r.lastStart)

	// moving within the month does not reload
	r.lastStart = time.Time{}
	m = press(t, m, "h")
	assert.Equal(t, 14, m.cursor.Day())
	assert.True(t, r.lastStart.IsZero())
}

func TestSignOutAndIn(t *testing.T) {
	m, _, sess, ctrl := newModel(t, true)

	m = press(t, m, "O")
	assert.Equal(t, 1, sess.signOuts)
	assert.Empty(t, m.user)
	assert.Equal(t, syncer.StateIdle, ctrl.Snapshot().State)
	assert.Contains(t, m.View(), "Press L to sign in")

	m = press(t, m, "L")
	assert.Equal(t, "jane@contoso.com", m.user)
	assert.Equal(t, syncer.StateReady, ctrl.Snapshot().State)
}
