package aadtoken

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientCredentials_Acquire(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
			"scope":         r.PostForm.Get("scope"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "aad-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	cc := ClientCredentials{
		TenantID:     " {ABC-123} ",
		ClientID:     "client",
		ClientSecret: "secret",
		Authority:    srv.URL,
		HTTP:         srv.Client(),
	}
	tok, err := cc.Acquire(context.Background(), PowerBIResource)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.AccessToken != "aad-token" {
		t.Fatalf("unexpected token: %q", tok.AccessToken)
	}
	if tok.Source != "client-credentials" {
		t.Fatalf("unexpected source: %q", tok.Source)
	}
	if tok.Expiry.Before(time.Now().Add(50 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", tok.Expiry)
	}
	if gotPath != "/abc-123/oauth2/v2.0/token" {
		t.Fatalf("unexpected token path: %q", gotPath)
	}
	if gotForm["grant_type"] != "client_credentials" {
		t.Fatalf("unexpected grant_type: %q", gotForm["grant_type"])
	}
	if gotForm["client_id"] != "client" || gotForm["client_secret"] != "secret" {
		t.Fatalf("expected credentials in form, got %#v", gotForm)
	}
	if gotForm["scope"] != "https://analysis.windows.net/powerbi/api/.default" {
		t.Fatalf("unexpected scope: %q", gotForm["scope"])
	}
}

func TestClientCredentials_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret"}`))
	}))
	defer srv.Close()

	cc := ClientCredentials{TenantID: "t", ClientID: "c", ClientSecret: "s", Authority: srv.URL, HTTP: srv.Client()}
	if _, err := cc.Acquire(context.Background(), PowerBIResource); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientCredentials_NotConfigured(t *testing.T) {
	_, err := ClientCredentials{TenantID: "t"}.Acquire(context.Background(), PowerBIResource)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestScope(t *testing.T) {
	cases := map[string]string{
		"":                            "https://analysis.windows.net/powerbi/api/.default",
		"https://x.test/api/":         "https://x.test/api/.default",
		"https://x.test/api/.default": "https://x.test/api/.default",
	}
	for in, want := range cases {
		if got := Scope(in); got != want {
			t.Fatalf("Scope(%q)=%q want %q", in, got, want)
		}
	}
}

func TestChain_SkipsUnconfigured(t *testing.T) {
	ch := Chain{Static{}, ClientCredentials{}, Static{AccessToken: " tok ", Source: "env"}}
	tok, err := ch.Acquire(context.Background(), PowerBIResource)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.AccessToken != "tok" || tok.Source != "env" {
		t.Fatalf("unexpected token: %#v", tok)
	}

	if _, err := (Chain{Static{}}).Acquire(context.Background(), PowerBIResource); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

type failingProvider struct{}

func (failingProvider) Acquire(context.Context, string) (Token, error) {
	return Token{}, errors.New("boom")
}

func TestChain_StopsOnRealError(t *testing.T) {
	ch := Chain{failingProvider{}, Static{AccessToken: "tok"}}
	if _, err := ch.Acquire(context.Background(), PowerBIResource); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
