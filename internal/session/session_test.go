package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIDP struct {
	accounts       []Account
	silentErr      error
	interactiveErr error
	interactiveTok Token
	removeErr      error

	silentCalls      int
	interactiveCalls int
	lastScopes       []string
	removed          []Account
}

func (f *fakeIDP) Accounts(context.Context) ([]Account, error) {
	return f.accounts, nil
}

func (f *fakeIDP) AcquireSilent(_ context.Context, scopes []string, account Account) (Token, error) {
	f.silentCalls++
	f.lastScopes = scopes
	if f.silentErr != nil {
		return Token{}, f.silentErr
	}
	return Token{AccessToken: "silent-" + account.ID, Account: account}, nil
}

func (f *fakeIDP) AcquireInteractive(_ context.Context, scopes []string) (Token, error) {
	f.interactiveCalls++
	f.lastScopes = scopes
	if f.interactiveErr != nil {
		return Token{}, f.interactiveErr
	}
	f.accounts = []Account{f.interactiveTok.Account}
	return f.interactiveTok, nil
}

func (f *fakeIDP) RemoveAccount(_ context.Context, account Account) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, account)
	f.accounts = nil
	return nil
}

var jane = Account{ID: "home-1", Username: "jane@contoso.com"}

func TestAccessToken_NoActiveSession(t *testing.T) {
	p := NewProvider(&fakeIDP{}, []string{"Calendars.ReadWrite"}, Options{})

	_, err := p.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAccessToken_Silent(t *testing.T) {
	idp := &fakeIDP{accounts: []Account{jane}}
	p := NewProvider(idp, []string{"Calendars.ReadWrite"}, Options{})

	tok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "silent-home-1", tok)
	assert.Equal(t, 1, idp.silentCalls)
	assert.Equal(t, 0, idp.interactiveCalls)
}

func TestAccessToken_FallsBackToInteractive(t *testing.T) {
	idp := &fakeIDP{
		accounts:       []Account{jane},
		silentErr:      fmt.Errorf("%w: consent needed", ErrInteractionRequired),
		interactiveTok: Token{AccessToken: "interactive", Account: jane},
	}
	p := NewProvider(idp, []string{"Calendars.ReadWrite"}, Options{})

	tok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "interactive", tok)
	assert.Equal(t, 1, idp.silentCalls)
	assert.Equal(t, 1, idp.interactiveCalls)
}

func TestAccessToken_OtherSilentErrorPropagates(t *testing.T) {
	boom := errors.New("token endpoint unavailable")
	idp := &fakeIDP{accounts: []Account{jane}, silentErr: boom}
	p := NewProvider(idp, []string{"Calendars.ReadWrite"}, Options{})

	_, err := p.AccessToken(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, idp.interactiveCalls)
}

func TestAccessToken_InteractiveFailure(t *testing.T) {
	denied := errors.New("user cancelled")
	idp := &fakeIDP{
		accounts:       []Account{jane},
		silentErr:      ErrInteractionRequired,
		interactiveErr: denied,
	}
	p := NewProvider(idp, nil, Options{})

	_, err := p.AccessToken(context.Background())
	assert.ErrorIs(t, err, denied)
}

func TestSignInAndOut(t *testing.T) {
	idp := &fakeIDP{interactiveTok: Token{AccessToken: "t", Account: jane}}
	p := NewProvider(idp, []string{"Calendars.ReadWrite"}, Options{})
	ctx := context.Background()

	_, err := p.Account(ctx)
	require.ErrorIs(t, err, ErrNoActiveSession)

	acct, err := p.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, jane, acct)

	got, err := p.Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, jane, got)

	require.NoError(t, p.SignOut(ctx))
	assert.Equal(t, []Account{jane}, idp.removed)

	_, err = p.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	// signing out twice is harmless
	assert.NoError(t, p.SignOut(ctx))
}

func TestSignOut_RemoveFails(t *testing.T) {
	idp := &fakeIDP{accounts: []Account{jane}, removeErr: errors.New("cache locked")}
	p := NewProvider(idp, nil, Options{})

	assert.Error(t, p.SignOut(context.Background()))
	acct, err := p.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jane, acct)
}

func TestRequestScopes(t *testing.T) {
	got := RequestScopes([]string{"openid", " Calendars.ReadWrite ", "", "offline_access", "Profile", "Group.ReadWrite.All"})
	assert.Equal(t, []string{"Calendars.ReadWrite", "Group.ReadWrite.All"}, got)

	idp := &fakeIDP{accounts: []Account{jane}}
	p := NewProvider(idp, []string{"openid", "Calendars.ReadWrite"}, Options{})
	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Calendars.ReadWrite"}, idp.lastScopes)
	assert.Equal(t, []string{"Calendars.ReadWrite"}, p.Scopes())
}
