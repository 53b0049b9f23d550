// Package session acquires delegated access tokens for the signed-in user.
//
// Tokens are requested silently first. When the identity provider reports
// that the user has to confirm interactively, Provider falls back to the
// interactive flow and returns its token; callers never see
// ErrInteractionRequired. Token caching is left to the identity library, so
// AccessToken is meant to be called before every remote call.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/logging"
)

var (
	// ErrNoActiveSession is returned when nobody is signed in.
	ErrNoActiveSession = errors.New("no active session")

	// ErrInteractionRequired is returned by IdentityProvider.AcquireSilent
	// when the user has to confirm interactively.
	ErrInteractionRequired = errors.New("interaction required")
)

// reservedScopes are added by the identity library itself.
var reservedScopes = map[string]bool{
	"openid":         true,
	"profile":        true,
	"offline_access": true,
}

// Account identifies a signed-in user.
type Account struct {
	// ID is the home account id assigned by the identity provider.
	ID string
	// Username is the user principal name.
	Username string
}

// IsZero reports whether the account is unset.
func (a Account) IsZero() bool {
	return a.ID == "" && a.Username == ""
}

// Token is an access token and the account it was issued to.
type Token struct {
	AccessToken string
	ExpiresOn   time.Time
	Account     Account
}

// IdentityProvider is the part of the identity library groupcal uses.
type IdentityProvider interface {
	// Accounts lists the accounts known to the token cache.
	Accounts(ctx context.Context) ([]Account, error)
	// AcquireSilent returns a cached or refreshed token. It returns an error
	// wrapping ErrInteractionRequired when the user has to confirm.
	AcquireSilent(ctx context.Context, scopes []string, account Account) (Token, error)
	// AcquireInteractive prompts the user.
	AcquireInteractive(ctx context.Context, scopes []string) (Token, error)
	// RemoveAccount drops the account from the token cache.
	RemoveAccount(ctx context.Context, account Account) error
}

// Options configures a Provider.
type Options struct {
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Provider hands out access tokens for the current account. Acquisitions are
// serialized so at most one silent or interactive request is in flight.
type Provider struct {
	idp     IdentityProvider
	scopes  []string
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	account Account
}

// NewProvider returns a Provider requesting scopes from idp.
func NewProvider(idp IdentityProvider, scopes []string, opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		idp:     idp,
		scopes:  RequestScopes(scopes),
		metrics: opts.Metrics,
		logger:  logger.With(slog.String("component", "session")),
	}
}

// RequestScopes trims the scope list and drops the scopes the identity
// library adds on its own.
func RequestScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" || reservedScopes[strings.ToLower(s)] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Scopes returns the scopes requested for every token.
func (p *Provider) Scopes() []string {
	return append([]string(nil), p.scopes...)
}

// Account returns the signed-in account. When the provider has not seen a
// sign-in yet it adopts the first account in the identity cache.
func (p *Provider) Account(ctx context.Context) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked(ctx)
}

func (p *Provider) currentLocked(ctx context.Context) (Account, error) {
	if !p.account.IsZero() {
		return p.account, nil
	}
	accounts, err := p.idp.Accounts(ctx)
	if err != nil {
		return Account{}, err
	}
	if len(accounts) == 0 {
		return Account{}, ErrNoActiveSession
	}
	p.account = accounts[0]
	return p.account, nil
}

// SignIn runs the interactive flow and makes the resulting account current.
func (p *Provider) SignIn(ctx context.Context) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.interactiveLocked(ctx)
	if err != nil {
		return Account{}, err
	}
	p.logger.InfoContext(ctx, "signed in", logging.UserHash(tok.Account.Username))
	return tok.Account, nil
}

// SignOut removes the current account from the identity cache.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, err := p.currentLocked(ctx)
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.idp.RemoveAccount(ctx, account); err != nil {
		return err
	}
	p.account = Account{}
	p.logger.InfoContext(ctx, "signed out", logging.UserHash(account.Username))
	return nil
}

// AccessToken returns a token for the current account, falling back to the
// interactive flow when silent acquisition requires it. It fails with
// ErrNoActiveSession when nobody is signed in.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, err := p.currentLocked(ctx)
	if err != nil {
		return "", err
	}

	tok, err := p.idp.AcquireSilent(ctx, p.scopes, account)
	if err == nil {
		p.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenModeSilent, instrumentation.TokenResultSuccess)
		return tok.AccessToken, nil
	}
	if !errors.Is(err, ErrInteractionRequired) {
		p.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenModeSilent, instrumentation.TokenResultFailure)
		p.logger.WarnContext(ctx, "silent token acquisition failed", logging.Err(err))
		return "", err
	}

	p.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenModeSilent, instrumentation.TokenResultInteractionRequired)
	p.logger.DebugContext(ctx, "silent token acquisition needs interaction", logging.Err(err))

	tok, err = p.interactiveLocked(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (p *Provider) interactiveLocked(ctx context.Context) (Token, error) {
	tok, err := p.idp.AcquireInteractive(ctx, p.scopes)
	if err != nil {
		p.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenModeInteractive, instrumentation.TokenResultFailure)
		p.logger.WarnContext(ctx, "interactive token acquisition failed", logging.Err(err))
		return Token{}, err
	}
	p.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenModeInteractive, instrumentation.TokenResultSuccess)
	if !tok.Account.IsZero() {
		p.account = tok.Account
	}
	return tok, nil
}
