package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvClientID, EnvTenantID, EnvAuthority, EnvScopes, EnvGroupID,
		EnvTimeZone, EnvAuthorizationGroupID, EnvRedirectURL, EnvGraphBaseURL,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	assert.Equal(t, DefaultTenant, cfg.TenantID)
	assert.Equal(t, DefaultScopes, cfg.Scopes)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, "http://localhost", cfg.RedirectURL)
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.GraphBaseURL)
	assert.Equal(t, "https://login.microsoftonline.com/organizations", cfg.AuthorityURL())
	assert.False(t, cfg.HasAuthorizationGroup())
}

func TestFromEnv_Values(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "client")
	t.Setenv(EnvTenantID, "contoso.onmicrosoft.com")
	t.Setenv(EnvScopes, "Calendars.ReadWrite, ,Group.Read.All")
	t.Setenv(EnvGroupID, "group")
	t.Setenv(EnvTimeZone, "SE Asia Standard Time")
	t.Setenv(EnvAuthorizationGroupID, "secretaries")

	cfg := FromEnv()
	assert.Equal(t, []string{"Calendars.ReadWrite", "Group.Read.All"}, cfg.Scopes)
	assert.Equal(t, "https://login.microsoftonline.com/contoso.onmicrosoft.com", cfg.AuthorityURL())
	assert.True(t, cfg.HasAuthorizationGroup())
	require.NoError(t, cfg.Validate())

	opts := cfg.CalendarOptions()
	assert.Equal(t, "group", opts.GroupID)
	assert.Equal(t, "SE Asia Standard Time", opts.TimeZone)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())
}

func TestAuthorityOverride(t *testing.T) {
	cfg := &Config{TenantID: "ignored", Authority: "https://login.microsoftonline.us/tenant"}
	assert.Equal(t, "https://login.microsoftonline.us/tenant", cfg.AuthorityURL())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ClientID:     "client",
			GroupID:      "group",
			Scopes:       DefaultScopes,
			TimeZone:     "UTC",
			RedirectURL:  "http://localhost",
			GraphBaseURL: "https://graph.microsoft.com/v1.0",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing client", func(c *Config) { c.ClientID = "" }, EnvClientID},
		{"missing group", func(c *Config) { c.GroupID = "" }, EnvGroupID},
		{"no scopes", func(c *Config) { c.Scopes = nil }, "scope"},
		{"bad timezone", func(c *Config) { c.TimeZone = "Nowhere/Land" }, "invalid timezone"},
		{"bad redirect", func(c *Config) { c.RedirectURL = "localhost" }, "invalid redirect url"},
		{"bad graph url", func(c *Config) { c.GraphBaseURL = "ftp://graph" }, "invalid graph base url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_DotenvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGroupID, "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	require.NoError(t, os.WriteFile(path, []byte("GROUPCAL_CLIENT_ID=from-file\nGROUPCAL_GROUP_ID=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(EnvClientID) })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ClientID)
	assert.Equal(t, "from-env", cfg.GroupID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseList(" a, ,b ,"))
	assert.Nil(t, ParseList(""))
}
