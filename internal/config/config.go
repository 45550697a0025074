package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/spreadsheet"
)

// AuthMode selects how the SharePoint client obtains bearer tokens.
type AuthMode string

const (
	// AuthModeCertificate is the app-only client-credentials flow with a
	// certificate-signed client assertion.
	AuthModeCertificate AuthMode = "certificate"
	// AuthModeDelegated is the interactive Authorization-Code + PKCE
	// flow acting as a signed-in user.
	AuthModeDelegated AuthMode = "delegated"
	// AuthModeStatic uses a pre-issued token from the environment,
	// mainly for development and tests.
	AuthModeStatic AuthMode = "static"
)

// Defaults
const (
	DefaultMaxSearchResults = 20
	MaxSearchResultsCeiling = 50
)

var defaultAllowedExtensions = []string{"doc", "docx", "xls", "xlsx", "ppt", "pptx", "pdf", "txt", "csv"}

// Config holds all environment-driven settings. Values are read once at
// startup; a .env file in the working directory is honoured when present.
type Config struct {
	SiteURL  string
	TenantID string
	ClientID string
	AuthMode AuthMode

	// Certificate auth material, each accepted as a file path or as
	// inline PEM text.
	CertificatePath string
	CertificatePEM  string
	PrivateKeyPath  string
	PrivateKeyPEM   string

	// Static auth
	AccessToken string

	// Delegated auth
	RedirectPort int

	AllowedExtensions []string
	MaxSearchResults  int

	// Optional overrides for the tool descriptions shown to clients.
	SearchToolDescription   string
	DownloadToolDescription string
	UploadToolDescription   string
	ExcelToolDescription    string

	Limits spreadsheet.Limits
}

// Load reads configuration from the environment, after loading a .env
// file when one exists. It never fails: call Validate to surface
// problems all at once.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		SiteURL:         strings.TrimRight(os.Getenv("SHAREPOINT_SITE_URL"), "/"),
		TenantID:        os.Getenv("SHAREPOINT_TENANT_ID"),
		ClientID:        os.Getenv("SHAREPOINT_CLIENT_ID"),
		AuthMode:        AuthMode(strings.ToLower(envOr("SHAREPOINT_AUTH_MODE", string(AuthModeCertificate)))),
		CertificatePath: os.Getenv("SHAREPOINT_CERT_PATH"),
		CertificatePEM:  os.Getenv("SHAREPOINT_CERT_PEM"),
		PrivateKeyPath:  os.Getenv("SHAREPOINT_KEY_PATH"),
		PrivateKeyPEM:   os.Getenv("SHAREPOINT_KEY_PEM"),
		AccessToken:     os.Getenv("SHAREPOINT_ACCESS_TOKEN"),
		RedirectPort:    envInt("SHAREPOINT_REDIRECT_PORT", 8765),

		AllowedExtensions: envList("SHAREPOINT_ALLOWED_EXTENSIONS", defaultAllowedExtensions),
		MaxSearchResults:  envInt("SHAREPOINT_MAX_SEARCH_RESULTS", DefaultMaxSearchResults),

		SearchToolDescription:   os.Getenv("SHAREPOINT_SEARCH_TOOL_DESCRIPTION"),
		DownloadToolDescription: os.Getenv("SHAREPOINT_DOWNLOAD_TOOL_DESCRIPTION"),
		UploadToolDescription:   os.Getenv("SHAREPOINT_UPLOAD_TOOL_DESCRIPTION"),
		ExcelToolDescription:    os.Getenv("SHAREPOINT_EXCEL_TOOL_DESCRIPTION"),

		Limits: loadLimits(),
	}
	if cfg.MaxSearchResults > MaxSearchResultsCeiling {
		cfg.MaxSearchResults = MaxSearchResultsCeiling
	}
	return cfg
}

func loadLimits() spreadsheet.Limits {
	limits := spreadsheet.DefaultLimits()
	limits.MaxRangeCells = envInt("EXCEL_MAX_RANGE_CELLS", limits.MaxRangeCells)
	limits.MaxRangeRows = envInt("EXCEL_MAX_RANGE_ROWS", limits.MaxRangeRows)
	limits.MaxRangeCols = envInt("EXCEL_MAX_RANGE_COLS", limits.MaxRangeCols)
	limits.MaxMatches = envInt("EXCEL_MAX_SEARCH_MATCHES", limits.MaxMatches)
	return limits
}

// Validate returns every configuration problem at once so a user can
// fix their environment in one pass.
func (c *Config) Validate() []string {
	var problems []string

	if c.SiteURL == "" {
		problems = append(problems, "SHAREPOINT_SITE_URL is required (e.g. https://contoso.sharepoint.com/sites/docs)")
	} else if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme != "https" || u.Host == "" {
		problems = append(problems, "SHAREPOINT_SITE_URL must be a valid https URL")
	}

	switch c.AuthMode {
	case AuthModeCertificate:
		if c.ClientID == "" {
			problems = append(problems, "SHAREPOINT_CLIENT_ID is required for certificate auth")
		}
		if c.TenantID == "" {
			problems = append(problems, "SHAREPOINT_TENANT_ID is required for certificate auth")
		}
		if c.CertificatePath == "" && c.CertificatePEM == "" {
			problems = append(problems, "one of SHAREPOINT_CERT_PATH or SHAREPOINT_CERT_PEM is required for certificate auth")
		}
		if c.PrivateKeyPath == "" && c.PrivateKeyPEM == "" {
			problems = append(problems, "one of SHAREPOINT_KEY_PATH or SHAREPOINT_KEY_PEM is required for certificate auth")
		}
	case AuthModeDelegated:
		if c.ClientID == "" {
			problems = append(problems, "SHAREPOINT_CLIENT_ID is required for delegated auth")
		}
		if c.TenantID == "" {
			problems = append(problems, "SHAREPOINT_TENANT_ID is required for delegated auth")
		}
	case AuthModeStatic:
		if c.AccessToken == "" {
			problems = append(problems, "SHAREPOINT_ACCESS_TOKEN is required for static auth")
		}
	default:
		problems = append(problems, fmt.Sprintf("SHAREPOINT_AUTH_MODE '%s' is not one of certificate, delegated, static", c.AuthMode))
	}

	if c.MaxSearchResults < 1 {
		problems = append(problems, "SHAREPOINT_MAX_SEARCH_RESULTS must be at least 1")
	}
	return problems
}

// TenantHost returns the bare host of the site URL, used to derive the
// OAuth resource scope (https://{host}/.default).
func (c *Config) TenantHost() string {
	u, err := url.Parse(c.SiteURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// ExtensionAllowed reports whether a file extension (without dot,
// case-insensitive) passes the configured allow-list.
func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, strings.TrimPrefix(item, "."))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
