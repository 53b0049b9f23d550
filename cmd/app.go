package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/config"
	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/logging"
	"github.com/teemow/groupcal/internal/role"
	"github.com/teemow/groupcal/internal/session"
	"github.com/teemow/groupcal/internal/syncer"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	envFiles  []string
	debug     bool
	logFormat string

	clientID     string
	tenantID     string
	groupID      string
	timeZone     string
	authzGroupID string
	graphBaseURL string
	redirectURL  string
	scopes       string
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringSliceVar(&f.envFiles, "env-file", nil, "Dotenv file(s) to load instead of ./.env and $XDG_CONFIG_HOME/groupcal/config.env")
	pf.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&f.logFormat, "log-format", logging.FormatText, "Log format: text or json")

	pf.StringVar(&f.clientID, "client-id", "", "Application (client) id. Overrides "+config.EnvClientID)
	pf.StringVar(&f.tenantID, "tenant", "", "Directory tenant. Overrides "+config.EnvTenantID)
	pf.StringVar(&f.groupID, "group-id", "", "Microsoft 365 group whose calendar is used. Overrides "+config.EnvGroupID)
	pf.StringVar(&f.timeZone, "timezone", "", "Time zone events are written in. Overrides "+config.EnvTimeZone)
	pf.StringVar(&f.authzGroupID, "authorization-group-id", "", "Group whose members may edit events. Overrides "+config.EnvAuthorizationGroupID)
	pf.StringVar(&f.graphBaseURL, "graph-base-url", "", "Microsoft Graph endpoint. Overrides "+config.EnvGraphBaseURL)
	pf.StringVar(&f.redirectURL, "redirect-url", "", "Loopback redirect for interactive sign-in. Overrides "+config.EnvRedirectURL)
	pf.StringVar(&f.scopes, "scopes", "", "Comma-separated delegated scopes. Overrides "+config.EnvScopes)
}

// loadConfig reads the configuration and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.envFiles...)
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		value  string
		target *string
	}{
		{f.clientID, &cfg.ClientID},
		{f.tenantID, &cfg.TenantID},
		{f.groupID, &cfg.GroupID},
		{f.timeZone, &cfg.TimeZone},
		{f.authzGroupID, &cfg.AuthorizationGroupID},
		{f.graphBaseURL, &cfg.GraphBaseURL},
		{f.redirectURL, &cfg.RedirectURL},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
	if scopes := config.ParseList(f.scopes); len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *globalFlags) logger(w io.Writer) (*slog.Logger, error) {
	level := "info"
	if f.debug {
		level = "debug"
	}
	return logging.New(w, logging.Options{Level: level, Format: f.logFormat})
}

// app is the wired object graph shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	instr   *instrumentation.Provider
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	session *session.Provider
	ctrl    *syncer.Controller
}

type appOptions struct {
	// logOut receives the application log.
	logOut io.Writer
	// instrumentation is optional; metrics are discarded without it.
	instrumentation *instrumentation.Provider
	audit           instrumentation.AuditLoggingConfig
}

func newApp(opts appOptions) (*app, error) {
	logger, err := flags.logger(opts.logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var metrics *instrumentation.Metrics
	if opts.instrumentation != nil && opts.instrumentation.Enabled() {
		metrics = opts.instrumentation.Metrics()
	}
	audit := instrumentation.NewAuditLoggerWithConfig(logger, opts.audit)

	idp, err := session.NewMSAL(session.MSALConfig{
		ClientID:    cfg.ClientID,
		Authority:   cfg.AuthorityURL(),
		RedirectURI: cfg.RedirectURL,
	})
	if err != nil {
		return nil, err
	}
	sess := session.NewProvider(idp, cfg.Scopes, session.Options{Metrics: metrics, Logger: logger})

	calOpts := cfg.CalendarOptions()
	calOpts.Metrics = metrics
	calOpts.Logger = logger
	remote := calendar.NewRemote(calOpts)

	roles := role.NewResolver(remote, cfg.AuthorizationGroupID, logger)

	ctrl := syncer.New(sess, roles, remote, syncer.Options{
		TimeZone: cfg.TimeZone,
		Location: loc,
		GroupID:  cfg.GroupID,
		Metrics:  metrics,
		Audit:    audit,
		Logger:   logger,
	})

	logger.Debug("configuration loaded",
		slog.String(logging.KeyGroup, cfg.GroupID),
		slog.String("timezone", cfg.TimeZone),
		slog.Bool("authorization_group", cfg.HasAuthorizationGroup()))

	return &app{
		cfg:     cfg,
		logger:  logger,
		instr:   opts.instrumentation,
		metrics: metrics,
		audit:   audit,
		session: sess,
		ctrl:    ctrl,
	}, nil
}

// signedIn makes sure a session exists, signing in interactively when the
// token cache is empty.
func (a *app) signedIn(ctx context.Context) (session.Account, error) {
	account, err := a.session.Account(ctx)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, session.ErrNoActiveSession) {
		return session.Account{}, err
	}
	a.logger.InfoContext(ctx, "no cached account, starting interactive sign-in")
	return a.session.SignIn(ctx)
}
