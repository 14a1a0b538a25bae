// Package aadtoken acquires Azure AD access tokens for the Power BI API.
//
// Tokens are acquired once by the host and never refreshed; see
// webpart.Part.Init.
package aadtoken

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultAuthority = "https://login.microsoftonline.com"
	// PowerBIResource is the audience of the Power BI REST API.
	PowerBIResource = "https://analysis.windows.net/powerbi/api"
)

// ErrNoCredentials is returned when no provider in a chain is configured.
var ErrNoCredentials = errors.New("no power bi credentials configured")

type Token struct {
	AccessToken string
	Expiry      time.Time
	Source      string
}

// Provider acquires a token for a resource URI.
type Provider interface {
	Acquire(ctx context.Context, resource string) (Token, error)
}

// Static hands out a token obtained elsewhere (env, flag, auth store).
type Static struct {
	AccessToken string
	Source      string
}

func (s Static) Acquire(context.Context, string) (Token, error) {
	tok := strings.TrimSpace(s.AccessToken)
	if tok == "" {
		return Token{}, ErrNoCredentials
	}
	src := s.Source
	if src == "" {
		src = "static"
	}
	return Token{AccessToken: tok, Source: src}, nil
}

// ClientCredentials runs the OAuth2 client-credentials grant against the
// tenant's v2.0 token endpoint.
type ClientCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Authority    string
	HTTP         *http.Client
}

func (c ClientCredentials) Configured() bool {
	return strings.TrimSpace(c.TenantID) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != ""
}

func (c ClientCredentials) TokenURL() (string, error) {
	authority := strings.TrimRight(strings.TrimSpace(c.Authority), "/")
	if authority == "" {
		authority = DefaultAuthority
	}
	u, err := url.Parse(authority)
	if err != nil {
		return "", err
	}
	tenant := strings.Trim(strings.ToLower(strings.TrimSpace(c.TenantID)), "{}")
	if tenant == "" {
		return "", errors.New("aad tenant id is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(tenant) + "/oauth2/v2.0/token"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func (c ClientCredentials) Acquire(ctx context.Context, resource string) (Token, error) {
	if !c.Configured() {
		return Token{}, ErrNoCredentials
	}
	tokenURL, err := c.TokenURL()
	if err != nil {
		return Token{}, err
	}

	cfg := clientcredentials.Config{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		TokenURL:     tokenURL,
		Scopes:       []string{Scope(resource)},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if c.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTP)
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("aad token request failed: %w", err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return Token{}, errors.New("aad token response missing access_token")
	}
	return Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry, Source: "client-credentials"}, nil
}

// Scope turns a resource URI into its v2.0 ".default" scope.
func Scope(resource string) string {
	resource = strings.TrimRight(strings.TrimSpace(resource), "/")
	if resource == "" {
		resource = PowerBIResource
	}
	if strings.HasSuffix(resource, "/.default") {
		return resource
	}
	return resource + "/.default"
}

// Chain tries each provider in order and returns the first token. Providers
// that report ErrNoCredentials are skipped; any other error stops the chain.
type Chain []Provider

func (ch Chain) Acquire(ctx context.Context, resource string) (Token, error) {
	for _, p := range ch {
		if p == nil {
			continue
		}
		tok, err := p.Acquire(ctx, resource)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		if err != nil {
			return Token{}, err
		}
		return tok, nil
	}
	return Token{}, ErrNoCredentials
}
