package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/session"
)

type accountMsg struct {
	name string
}

type refreshedMsg struct {
	err error
}

type savedMsg struct {
	event calendar.Event
	err   error
}

type deletedMsg struct {
	err error
}

type signedInMsg struct {
	account session.Account
	err     error
}

type signedOutMsg struct {
	err error
}

func (m Model) loadAccount() tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		if sess == nil {
			return accountMsg{}
		}
		acct, err := sess.Account(ctx)
		if err != nil {
			return accountMsg{}
		}
		return accountMsg{name: acct.Username}
	}
}

func (m *Model) refresh() tea.Cmd {
	m.busy = true
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return refreshedMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m *Model) save(ev calendar.Event) tea.Cmd {
	m.busy = true
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		saved, err := ctrl.SaveEvent(ctx, ev)
		return savedMsg{event: saved, err: err}
	}
}

func (m *Model) remove(id string) tea.Cmd {
	m.busy = true
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return deletedMsg{err: ctrl.DeleteEvent(ctx, id)}
	}
}

func (m *Model) signIn() tea.Cmd {
	m.busy = true
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		acct, err := sess.SignIn(ctx)
		return signedInMsg{account: acct, err: err}
	}
}

func (m *Model) signOut() tea.Cmd {
	m.busy = true
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return signedOutMsg{err: sess.SignOut(ctx)}
	}
}
