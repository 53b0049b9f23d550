package server

import (
	"context"
	"testing"
	"time"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/session"
	"github.com/teemow/groupcal/internal/syncer"
)

type stubTokens struct {
	err error
}

func (s stubTokens) AccessToken(context.Context) (string, error) {
	return "token", s.err
}

type stubRoles struct{}

func (stubRoles) Resolve(context.Context, string) (bool, error) {
	return true, nil
}

type stubRemote struct {
	events []calendar.Event
	err    error
}

func (r stubRemote) ListEvents(context.Context, string, time.Time, time.Time) ([]calendar.Event, error) {
	return r.events, r.err
}

func (r stubRemote) CreateEvent(_ context.Context, _ string, ev calendar.Event) (calendar.Event, error) {
	ev.ID = "created"
	return ev, nil
}

func (stubRemote) UpdateEvent(context.Context, string, string, calendar.Patch) error {
	return nil
}

func (stubRemote) DeleteEvent(context.Context, string, string) error {
	return nil
}

type stubAccounts struct {
	account session.Account
	err     error
}

func (s stubAccounts) Account(context.Context) (session.Account, error) {
	return s.account, s.err
}

func newTestController(remote stubRemote, tokens stubTokens) *syncer.Controller {
	return syncer.New(tokens, stubRoles{}, remote, syncer.Options{
		TimeZone: "UTC",
		Now:      func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) },
	})
}

func newTestServerContext(t *testing.T, opts Options) *ServerContext {
	t.Helper()
	if opts.Controller == nil {
		opts.Controller = newTestController(stubRemote{}, stubTokens{})
	}
	sc, err := NewServerContext(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func createTestProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "groupcal-test",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create test provider: %v", err)
	}
	t.Cleanup(func() {
		_ = provider.Shutdown(ctx)
	})
	return provider
}

func createDisabledProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:    "groupcal-test",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create disabled provider: %v", err)
	}
	return provider
}
