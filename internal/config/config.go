// Package config loads the static settings groupcal needs at start-up.
//
// Values come from the environment. Before reading it, Load imports optional
// dotenv files: ./.env first, then $XDG_CONFIG_HOME/groupcal/config.env.
// Variables that are already set are never overridden, so the process
// environment wins over ./.env, which wins over the user config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/teemow/groupcal/internal/calendar"
)

// AppName names the XDG directories used by groupcal.
const AppName = "groupcal"

// Environment variables.
const (
	EnvClientID             = "GROUPCAL_CLIENT_ID"
	EnvTenantID             = "GROUPCAL_TENANT_ID"
	EnvAuthority            = "GROUPCAL_AUTHORITY"
	EnvScopes               = "GROUPCAL_SCOPES"
	EnvGroupID              = "GROUPCAL_GROUP_ID"
	EnvTimeZone             = "GROUPCAL_TIMEZONE"
	EnvAuthorizationGroupID = "GROUPCAL_AUTHORIZATION_GROUP_ID"
	EnvRedirectURL          = "GROUPCAL_REDIRECT_URL"
	EnvGraphBaseURL         = "GROUPCAL_GRAPH_BASE_URL"
)

// Defaults.
const (
	DefaultTenant      = "organizations"
	DefaultTimeZone    = "UTC"
	DefaultRedirectURL = "http://localhost"
	loginHost          = "https://login.microsoftonline.com/"
)

// DefaultScopes are the delegated permissions requested at sign-in.
var DefaultScopes = []string{
	"Calendars.ReadWrite",
	"Group.ReadWrite.All",
	"GroupMember.Read.All",
}

// Config holds the application identity and the calendar to operate on.
type Config struct {
	// ClientID is the Entra ID application (client) id.
	ClientID string
	// TenantID is the directory tenant. Defaults to "organizations".
	TenantID string
	// Authority overrides the authority derived from TenantID.
	Authority string
	// Scopes are the delegated permission scopes.
	Scopes []string

	// GroupID is the Microsoft 365 group whose calendar is shown.
	GroupID string
	// TimeZone is the single zone every event is written in.
	TimeZone string

	// AuthorizationGroupID gates editing. When empty every signed-in user
	// may edit.
	AuthorizationGroupID string

	// RedirectURL is the loopback address used for interactive sign-in.
	RedirectURL string
	// GraphBaseURL overrides the Microsoft Graph endpoint.
	GraphBaseURL string
}

// DefaultFiles returns the dotenv files Load reads, in priority order. Files
// that do not exist are left out.
func DefaultFiles() []string {
	var files []string
	if _, err := os.Stat(".env"); err == nil {
		files = append(files, ".env")
	}
	if p, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.env")); err == nil {
		files = append(files, p)
	}
	return files
}

// Load imports the given dotenv files, or DefaultFiles when none are given,
// and then reads the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultFiles()
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv reads the configuration from environment variables only.
func FromEnv() *Config {
	cfg := &Config{
		ClientID:             strings.TrimSpace(os.Getenv(EnvClientID)),
		TenantID:             envOr(EnvTenantID, DefaultTenant),
		Authority:            strings.TrimSpace(os.Getenv(EnvAuthority)),
		Scopes:               ParseList(os.Getenv(EnvScopes)),
		GroupID:              strings.TrimSpace(os.Getenv(EnvGroupID)),
		TimeZone:             envOr(EnvTimeZone, DefaultTimeZone),
		AuthorizationGroupID: strings.TrimSpace(os.Getenv(EnvAuthorizationGroupID)),
		RedirectURL:          envOr(EnvRedirectURL, DefaultRedirectURL),
		GraphBaseURL:         envOr(EnvGraphBaseURL, calendar.DefaultBaseURL),
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), DefaultScopes...)
	}
	return cfg
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ParseList splits a comma separated list, trimming blanks and dropping empty
// entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AuthorityURL returns the authority used for token requests.
func (c *Config) AuthorityURL() string {
	if c.Authority != "" {
		return c.Authority
	}
	tenant := c.TenantID
	if tenant == "" {
		tenant = DefaultTenant
	}
	return loginHost + tenant
}

// Location resolves the configured zone.
func (c *Config) Location() (*time.Location, error) {
	return calendar.LoadLocation(c.TimeZone)
}

// HasAuthorizationGroup reports whether editing is restricted to a group.
func (c *Config) HasAuthorizationGroup() bool {
	return c.AuthorizationGroupID != ""
}

// CalendarOptions returns the options for the Graph client.
func (c *Config) CalendarOptions() calendar.Options {
	return calendar.Options{
		GroupID:  c.GroupID,
		TimeZone: c.TimeZone,
		BaseURL:  c.GraphBaseURL,
	}
}

// Validate checks that everything needed to talk to Graph is present.
func (c *Config) Validate() error {
	var errs []error

	if c.ClientID == "" {
		errs = append(errs, fmt.Errorf("client id is required (set %s)", EnvClientID))
	}
	if c.GroupID == "" {
		errs = append(errs, fmt.Errorf("group id is required (set %s)", EnvGroupID))
	}
	if len(c.Scopes) == 0 {
		errs = append(errs, errors.New("at least one scope is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone: %w", err))
	}
	if err := checkURL(c.RedirectURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid redirect url: %w", err))
	}
	if err := checkURL(c.AuthorityURL()); err != nil {
		errs = append(errs, fmt.Errorf("invalid authority: %w", err))
	}
	if err := checkURL(c.GraphBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid graph base url: %w", err))
	}

	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http or https url", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
