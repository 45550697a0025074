package auth

import (
	"context"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/utils/httpclient"
	"github.com/sirupsen/logrus"
)

const (
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionLifetime   = 5 * time.Minute
	// expiryMargin renews tokens early so an in-flight request never
	// carries a token that expires mid-call.
	expiryMargin = 5 * time.Minute
)

// CertificateProvider implements the app-only client-credentials flow:
// a certificate-signed JWT client assertion is exchanged at the tenant
// token endpoint for a bearer token, which is cached until shortly
// before expiry.
type CertificateProvider struct {
	tokenURL string
	clientID string
	scope    string

	key        *rsa.PrivateKey
	thumbprint string // base64url SHA-1 of the certificate DER

	httpClient *http.Client
	logger     *logrus.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewCertificateProvider loads the certificate and private key (from
// file paths or inline PEM) and prepares the assertion signer.
func NewCertificateProvider(cfg *config.Config, logger *logrus.Logger) (*CertificateProvider, error) {
	certPEM, err := loadPEMMaterial(cfg.CertificatePath, cfg.CertificatePEM)
	if err != nil {
		return nil, fmt.Errorf("loading certificate: %w", err)
	}
	keyPEM, err := loadPEMMaterial(cfg.PrivateKeyPath, cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("loading private key: %w", err)
	}

	thumbprint, err := certThumbprint(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := parseRSAPrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	return &CertificateProvider{
		tokenURL:   fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		clientID:   cfg.ClientID,
		scope:      fmt.Sprintf("https://%s/.default", cfg.TenantHost()),
		key:        key,
		thumbprint: thumbprint,
		httpClient: httpclient.New(30*time.Second, logger),
		logger:     logger,
	}, nil
}

// Token returns the cached bearer token, fetching a fresh one when the
// cache is empty or within the early-expiry margin.
func (p *CertificateProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && time.Now().Before(p.expires.Add(-expiryMargin)) {
		return p.token, nil
	}

	assertion, err := p.buildAssertion()
	if err != nil {
		return "", err
	}
	token, expiresIn, err := p.requestToken(ctx, assertion)
	if err != nil {
		return "", err
	}

	p.token = token
	p.expires = time.Now().Add(time.Duration(expiresIn) * time.Second)
	p.logger.WithField("expires_in", expiresIn).Debug("Acquired SharePoint access token")
	return p.token, nil
}

// buildAssertion signs the client assertion JWT. The x5t header carries
// the certificate thumbprint the identity provider uses to pick the
// registered public key.
func (p *CertificateProvider) buildAssertion() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"aud": p.tokenURL,
		"iss": p.clientID,
		"sub": p.clientID,
		"jti": uuid.NewString(),
		"nbf": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["x5t"] = p.thumbprint

	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("signing client assertion: %w", err)
	}
	return signed, nil
}

func (p *CertificateProvider) requestToken(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_id":             {p.clientID},
		"client_assertion_type": {clientAssertionType},
		"client_assertion":      {assertion},
		"scope":                 {p.scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, summarizeOAuthError(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, errors.New("token response contained no access_token")
	}
	return payload.AccessToken, payload.ExpiresIn, nil
}

// summarizeOAuthError extracts the error code and description from an
// identity-provider error body without echoing the whole payload.
func summarizeOAuthError(body []byte) string {
	var payload struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return "unrecognised error response"
	}
	if i := strings.IndexByte(payload.Description, '\n'); i > 0 {
		payload.Description = payload.Description[:i]
	}
	return payload.Error + ": " + payload.Description
}

// loadPEMMaterial accepts a file path or inline PEM text; inline wins
// when both are set.
func loadPEMMaterial(path, inline string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, errors.New("no PEM material configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// certThumbprint computes the base64url-encoded SHA-1 fingerprint of
// the first certificate in the PEM input, as required for the x5t
// assertion header.
func certThumbprint(certPEM []byte) (string, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return "", errors.New("certificate PEM contains no CERTIFICATE block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parsing certificate: %w", err)
	}
	sum := sha1.Sum(cert.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func parseRSAPrivateKey(keyPEM []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("private key PEM contains no key block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
