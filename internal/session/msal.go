package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	oauth "github.com/giantswarm/mcp-oauth"
)

// MSALConfig configures the MSAL public client.
type MSALConfig struct {
	ClientID    string
	Authority   string
	RedirectURI string
	Cache       *MemoryCache
}

// MSAL adapts an MSAL public client application to IdentityProvider.
type MSAL struct {
	client      public.Client
	redirectURI string
}

// NewMSAL creates the public client application.
func NewMSAL(cfg MSALConfig) (*MSAL, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = &MemoryCache{}
	}

	opts := []public.Option{public.WithCache(cfg.Cache)}
	if cfg.Authority != "" {
		opts = append(opts, public.WithAuthority(cfg.Authority))
	}
	client, err := public.New(cfg.ClientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create public client: %w", err)
	}
	return &MSAL{client: client, redirectURI: cfg.RedirectURI}, nil
}

func toAccount(a public.Account) Account {
	return Account{ID: a.HomeAccountID, Username: a.PreferredUsername}
}

func toToken(r public.AuthResult) Token {
	return Token{
		AccessToken: r.AccessToken,
		ExpiresOn:   r.ExpiresOn,
		Account:     toAccount(r.Account),
	}
}

// Accounts lists the cached accounts.
func (m *MSAL) Accounts(ctx context.Context) ([]Account, error) {
	accounts, err := m.client.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.IsZero() {
			continue
		}
		out = append(out, toAccount(a))
	}
	return out, nil
}

func (m *MSAL) lookup(ctx context.Context, account Account) (public.Account, error) {
	accounts, err := m.client.Accounts(ctx)
	if err != nil {
		return public.Account{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.HomeAccountID == account.ID {
			return a, nil
		}
	}
	return public.Account{}, ErrNoActiveSession
}

// AcquireSilent returns a token from the cache, refreshing it if needed.
func (m *MSAL) AcquireSilent(ctx context.Context, scopes []string, account Account) (Token, error) {
	acct, err := m.lookup(ctx, account)
	if err != nil {
		return Token{}, err
	}
	res, err := m.client.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(acct))
	if err != nil {
		return Token{}, classifySilent(ctx, err)
	}
	return toToken(res), nil
}

// AcquireInteractive opens the system browser and waits for the redirect on
// the loopback address.
func (m *MSAL) AcquireInteractive(ctx context.Context, scopes []string) (Token, error) {
	var opts []public.AcquireInteractiveOption
	if m.redirectURI != "" {
		opts = append(opts, public.WithRedirectURI(m.redirectURI))
	}
	res, err := m.client.AcquireTokenInteractive(ctx, scopes, opts...)
	if err != nil {
		return Token{}, fmt.Errorf("interactive sign-in failed: %w", err)
	}
	return toToken(res), nil
}

// RemoveAccount drops the account from the cache.
func (m *MSAL) RemoveAccount(ctx context.Context, account Account) error {
	acct, err := m.lookup(ctx, account)
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.client.RemoveAccount(ctx, acct); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	return nil
}

// classifySilent decides whether a silent failure can be recovered by
// prompting the user. Server errors and cancellation are returned as they
// are; rejected grants, OIDC interaction codes and cache misses become
// ErrInteractionRequired.
func classifySilent(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if resp, ok := callResponse(err); ok {
		switch {
		case resp == nil:
			return fmt.Errorf("silent token acquisition failed: %w", err)
		case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrInteractionRequired, err)
		case oauth.IsSilentAuthError(err):
			return fmt.Errorf("%w: %v", ErrInteractionRequired, err)
		default:
			return fmt.Errorf("silent token acquisition failed: %w", err)
		}
	}

	// no usable refresh token in the cache
	return fmt.Errorf("%w: %v", ErrInteractionRequired, err)
}

// callResponse returns the HTTP response of a failed token endpoint call and
// whether err was such a call at all.
func callResponse(err error) (*http.Response, bool) {
	var callErr msalerrors.CallErr
	if errors.As(err, &callErr) {
		return callErr.Resp, true
	}
	var callErrPtr *msalerrors.CallErr
	if errors.As(err, &callErrPtr) && callErrPtr != nil {
		return callErrPtr.Resp, true
	}
	return nil, false
}
