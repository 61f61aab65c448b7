package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/airbusgeo/stac-uploader/service/log"
)

// TokenManager provides a valid bearer token, refreshing it when it has expired
type TokenManager interface {
	Get() (string, error)
}

// ClientCredentials are the parameters of the machine-to-machine authentication
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Audience     string
}

type clientCredentialsTokenManager struct {
	ctx         context.Context
	tokenSource oauth2.TokenSource
	mu          sync.Mutex
	lastExpiry  string
}

// NewClientCredentialsTokenManager creates a TokenManager fetching the token with the oauth2 client credentials flow.
// The token is cached and refreshed when it expires.
// If client is not nil, it is used to request the token.
func NewClientCredentialsTokenManager(ctx context.Context, client *http.Client, creds ClientCredentials) (TokenManager, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errors.New("NewClientCredentialsTokenManager: client id and client secret are required")
	}
	if creds.TokenURL == "" {
		return nil, errors.New("NewClientCredentialsTokenManager: token url is required")
	}
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if creds.Audience != "" {
		cfg.EndpointParams = url.Values{"audience": {creds.Audience}}
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	return &clientCredentialsTokenManager{ctx: ctx, tokenSource: cfg.TokenSource(ctx)}, nil
}

// Get implements TokenManager
func (t *clientCredentialsTokenManager) Get() (string, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("retrieved token is empty")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if expiry := token.Expiry.String(); expiry != t.lastExpiry {
		t.lastExpiry = expiry
		log.Logger(t.ctx).Sugar().Debugf("new token, expires at %s", expiry)
	}
	return token.AccessToken, nil
}

// StaticTokenManager always returns the same token
type StaticTokenManager string

// Get implements TokenManager
func (t StaticTokenManager) Get() (string, error) {
	if t == "" {
		return "", errors.New("failed to get token")
	}
	return string(t), nil
}

type transportJwt struct {
	originalTransport http.RoundTripper
	TokenManager
	blackList []string
}

// NewAuthenticatedClient returns an http.Client adding the bearer token of the TokenManager to every request,
// except the requests to the urls of the blacklist (e.g. the token endpoint or the public storage).
// If transport is nil, http.DefaultTransport is used.
func NewAuthenticatedClient(tm TokenManager, transport http.RoundTripper, blackList ...string) *http.Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{Transport: &transportJwt{originalTransport: transport, TokenManager: tm, blackList: blackList}}
}

func (t *transportJwt) RoundTrip(req *http.Request) (*http.Response, error) {
	for _, blackListItem := range t.blackList {
		if strings.HasPrefix(strings.ToLower(req.URL.String()), strings.ToLower(blackListItem)) {
			return t.originalTransport.RoundTrip(req)
		}
	}

	token, err := t.TokenManager.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	// RoundTrip must not modify the original request
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return t.originalTransport.RoundTrip(req)
}
