// Package auth supplies bearer credentials for the SharePoint client.
// Three modes exist: app-only certificate client-credentials (the
// production default), delegated Authorization-Code+PKCE acting as a
// signed-in user, and a static pre-issued token for development.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/sirupsen/logrus"
)

// TokenProvider yields a currently valid bearer token. Implementations
// cache and refresh internally; callers just ask per request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// NewProvider builds the token provider matching the configured auth mode.
func NewProvider(cfg *config.Config, logger *logrus.Logger) (TokenProvider, error) {
	switch cfg.AuthMode {
	case config.AuthModeCertificate:
		return NewCertificateProvider(cfg, logger)
	case config.AuthModeDelegated:
		return NewDelegatedProvider(cfg, logger), nil
	case config.AuthModeStatic:
		if cfg.AccessToken == "" {
			return nil, errors.New("static auth mode requires SHAREPOINT_ACCESS_TOKEN")
		}
		return &StaticProvider{AccessToken: cfg.AccessToken}, nil
	}
	return nil, fmt.Errorf("unsupported auth mode: %s", cfg.AuthMode)
}

// StaticProvider returns a fixed token from the environment.
type StaticProvider struct {
	AccessToken string
}

func (p *StaticProvider) Token(_ context.Context) (string, error) {
	return p.AccessToken, nil
}
