package sharepoint

import (
	"fmt"
	"sync"

	"github.com/ncdcdev/sharepoint-docs-mcp/internal/auth"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/sirupsen/logrus"
)

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// DefaultClient returns the process-wide client, building it from the
// environment on first use. Tools share one instance so the token
// cache and rate limiter apply across all of them.
func DefaultClient(logger *logrus.Logger) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		return defaultClient, nil
	}

	cfg := config.Load()
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("SharePoint configuration is incomplete: %v", problems)
	}
	provider, err := auth.NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	defaultClient = NewClient(cfg, provider, logger)
	return defaultClient, nil
}
