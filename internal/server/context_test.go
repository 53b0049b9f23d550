package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/groupcal/internal/session"
)

func TestNewServerContext_RequiresController(t *testing.T) {
	_, err := NewServerContext(context.Background(), Options{})
	require.Error(t, err)
}

func TestServerContext_User(t *testing.T) {
	sc := newTestServerContext(t, Options{
		Accounts: stubAccounts{account: session.Account{ID: "1", Username: "ada@contoso.com"}},
	})
	assert.Equal(t, "ada@contoso.com", sc.User(context.Background()))

	signedOut := newTestServerContext(t, Options{Accounts: stubAccounts{err: session.ErrNoActiveSession}})
	assert.Empty(t, signedOut.User(context.Background()))

	noSource := newTestServerContext(t, Options{})
	assert.Empty(t, noSource.User(context.Background()))
}

func TestServerContext_Accessors(t *testing.T) {
	ctrl := newTestController(stubRemote{}, stubTokens{})
	sc := newTestServerContext(t, Options{Controller: ctrl, ReadOnly: true})

	assert.Same(t, ctrl, sc.Controller())
	assert.True(t, sc.ReadOnly())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.NotNil(t, sc.Logger())
}

func TestServerContext_Shutdown(t *testing.T) {
	ctrl := newTestController(stubRemote{}, stubTokens{})
	sc := newTestServerContext(t, Options{Controller: ctrl})
	require.NoError(t, ctrl.Refresh(context.Background()))
	require.True(t, ctrl.NewEvent())

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
	assert.False(t, ctrl.Snapshot().EditorOpen())

	require.NoError(t, sc.Shutdown())
}
