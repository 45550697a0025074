// Package httpclient builds HTTP clients honouring the standard proxy
// environment variables, with credential-redacting debug logs.
package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// proxyEnvVars is the order of preference for proxy configuration,
// following the conventions used by curl and wget.
var proxyEnvVars = []string{
	"HTTPS_PROXY",
	"https_proxy",
	"HTTP_PROXY",
	"http_proxy",
}

// New creates an HTTP client with the given timeout. A proxy is
// configured only when one of the standard environment variables is
// set; the logger (optional) records which proxy was picked with
// credentials redacted.
func New(timeout time.Duration, logger *logrus.Logger) *http.Client {
	client := &http.Client{Timeout: timeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL := proxyFromEnv(); proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
			if logger != nil {
				logger.WithField("proxy_url", redactCredentials(proxyURL)).Debug("HTTP client configured with proxy")
			}
		} else if logger != nil {
			logger.WithError(err).Warn("Failed to parse proxy URL, using direct connection")
		}
	}

	client.Transport = transport
	return client
}

// proxyFromEnv returns the first configured proxy URL, skipping the
// literal placeholder values some tools export.
func proxyFromEnv() string {
	for _, envVar := range proxyEnvVars {
		if proxyURL := os.Getenv(envVar); proxyURL != "" {
			if proxyURL != "$HTTPS_PROXY" && proxyURL != "$HTTP_PROXY" {
				return proxyURL
			}
		}
	}
	return ""
}

func redactCredentials(proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return "[invalid-url]"
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword("***", "***")
	}
	return parsed.String()
}
