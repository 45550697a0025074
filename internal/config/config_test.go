package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCertConfig() *Config {
	return &Config{
		SiteURL:           "https://contoso.sharepoint.com/sites/docs",
		TenantID:          "contoso.onmicrosoft.com",
		ClientID:          "11111111-2222-3333-4444-555555555555",
		AuthMode:          AuthModeCertificate,
		CertificatePath:   "/etc/certs/sp.crt",
		PrivateKeyPath:    "/etc/certs/sp.key",
		MaxSearchResults:  DefaultMaxSearchResults,
		AllowedExtensions: []string{"xlsx", "docx"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.Empty(t, validCertConfig().Validate())
}

func TestValidateReportsAllProblemsAtOnce(t *testing.T) {
	cfg := &Config{AuthMode: AuthModeCertificate, MaxSearchResults: DefaultMaxSearchResults}
	problems := cfg.Validate()
	require.NotEmpty(t, problems)
	// Site URL, client ID, tenant ID, cert and key all missing.
	assert.Len(t, problems, 5)
}

func TestValidateSiteURLScheme(t *testing.T) {
	cfg := validCertConfig()
	cfg.SiteURL = "http://contoso.sharepoint.com/sites/docs"
	problems := cfg.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "https")
}

func TestValidateStaticMode(t *testing.T) {
	cfg := &Config{
		SiteURL:          "https://contoso.sharepoint.com/sites/docs",
		AuthMode:         AuthModeStatic,
		MaxSearchResults: 10,
	}
	problems := cfg.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "SHAREPOINT_ACCESS_TOKEN")

	cfg.AccessToken = "token"
	assert.Empty(t, cfg.Validate())
}

func TestValidateUnknownAuthMode(t *testing.T) {
	cfg := validCertConfig()
	cfg.AuthMode = "kerberos"
	problems := cfg.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "SHAREPOINT_AUTH_MODE")
}

func TestLoadAppliesEnvironment(t *testing.T) {
	t.Setenv("SHAREPOINT_SITE_URL", "https://contoso.sharepoint.com/sites/docs/")
	t.Setenv("SHAREPOINT_AUTH_MODE", "STATIC")
	t.Setenv("SHAREPOINT_ACCESS_TOKEN", "token")
	t.Setenv("SHAREPOINT_MAX_SEARCH_RESULTS", "200")
	t.Setenv("SHAREPOINT_ALLOWED_EXTENSIONS", ".XLSX, csv")
	t.Setenv("EXCEL_MAX_RANGE_CELLS", "2500")

	cfg := Load()
	assert.Equal(t, "https://contoso.sharepoint.com/sites/docs", cfg.SiteURL)
	assert.Equal(t, AuthModeStatic, cfg.AuthMode)
	// Requested 200, clamped to the ceiling.
	assert.Equal(t, MaxSearchResultsCeiling, cfg.MaxSearchResults)
	assert.Equal(t, []string{"xlsx", "csv"}, cfg.AllowedExtensions)
	assert.Equal(t, 2500, cfg.Limits.MaxRangeCells)
	assert.Empty(t, cfg.Validate())
}

func TestExtensionAllowed(t *testing.T) {
	cfg := validCertConfig()
	assert.True(t, cfg.ExtensionAllowed("xlsx"))
	assert.True(t, cfg.ExtensionAllowed(".XLSX"))
	assert.False(t, cfg.ExtensionAllowed("exe"))
}

func TestTenantHost(t *testing.T) {
	cfg := validCertConfig()
	assert.Equal(t, "contoso.sharepoint.com", cfg.TenantHost())
}
