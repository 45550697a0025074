package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const authFlowTimeout = 5 * time.Minute

// DelegatedProvider implements the interactive Authorization-Code +
// PKCE flow. On first use it opens the system browser at the tenant
// authorize endpoint and catches the redirect on a loopback listener;
// afterwards the refresh token keeps the session alive without further
// interaction.
type DelegatedProvider struct {
	oauth  *oauth2.Config
	port   int
	logger *logrus.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewDelegatedProvider prepares the flow; no network activity happens
// until the first Token call.
func NewDelegatedProvider(cfg *config.Config, logger *logrus.Logger) *DelegatedProvider {
	return &DelegatedProvider{
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:  fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", cfg.TenantID),
				TokenURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
			},
			RedirectURL: fmt.Sprintf("http://localhost:%d/callback", cfg.RedirectPort),
			Scopes: []string{
				fmt.Sprintf("https://%s/.default", cfg.TenantHost()),
				"offline_access",
			},
		},
		port:   cfg.RedirectPort,
		logger: logger,
	}
}

// Token returns a valid access token, running the browser flow when no
// refreshable session exists yet.
func (p *DelegatedProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source != nil {
		if tok, err := p.source.Token(); err == nil && tok.Valid() {
			return tok.AccessToken, nil
		}
	}

	tok, err := p.authenticate(ctx)
	if err != nil {
		return "", err
	}
	p.source = p.oauth.TokenSource(context.WithoutCancel(ctx), tok)
	return tok.AccessToken, nil
}

type callbackResult struct {
	code string
	err  error
}

func (p *DelegatedProvider) authenticate(ctx context.Context) (*oauth2.Token, error) {
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", p.port))
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	results := make(chan callbackResult, 1)
	server := &http.Server{Handler: callbackHandler(state, results)}
	go func() { _ = server.Serve(listener) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := p.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	p.logger.WithField("url", authURL).Info("Opening browser for SharePoint sign-in")
	if err := openBrowser(authURL); err != nil {
		p.logger.WithError(err).Warnf("Could not open a browser automatically; visit %s to continue", authURL)
	}

	ctx, cancel := context.WithTimeout(ctx, authFlowTimeout)
	defer cancel()
	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		return p.oauth.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	case <-ctx.Done():
		return nil, fmt.Errorf("sign-in not completed: %w", ctx.Err())
	}
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var res callbackResult
		switch {
		case query.Get("error") != "":
			res.err = fmt.Errorf("authorization failed: %s (%s)", query.Get("error"), query.Get("error_description"))
		case query.Get("state") != state:
			res.err = errors.New("authorization response state mismatch")
		default:
			res.code = query.Get("code")
		}

		if res.err != nil {
			http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
		} else {
			_, _ = w.Write([]byte("Signed in. You can close this window."))
		}

		// Only the first callback counts. A browser refresh re-delivers
		// the redirect after the buffered slot is taken; dropping the
		// duplicate keeps this handler from blocking past shutdown.
		select {
		case results <- res:
		default:
		}
	})
	return mux
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
