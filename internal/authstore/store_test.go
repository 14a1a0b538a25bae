package authstore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const resource = "https://analysis.windows.net/powerbi/api"

func TestStore_SetGet_TrimsAndValidates(t *testing.T) {
	s := &Store{}
	s.Set("  "+resource+"/ ", Record{Token: "  tok  "})

	got, ok := s.Get(resource)
	if !ok {
		t.Fatalf("expected token present")
	}
	if got != "tok" {
		t.Fatalf("expected trimmed token, got %q", got)
	}

	// Missing token should not be returned.
	s.Tokens["https://x"] = Record{Token: "   "}
	if _, ok := s.Get("https://x"); ok {
		t.Fatalf("expected missing token")
	}

	// Blank inputs should be ignored.
	s.Set("", Record{Token: "tok2"})
	s.Set("https://y", Record{})
	if _, ok := s.Get("https://y"); ok {
		t.Fatalf("expected not set")
	}
}

func TestStore_ExpiredTokenNotReturned(t *testing.T) {
	s := &Store{}
	s.Set(resource, Record{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})

	if _, ok := s.Get(resource); ok {
		t.Fatalf("expected expired token to be hidden")
	}
	rec, ok := s.Lookup(resource)
	if !ok || rec.Token != "old" {
		t.Fatalf("expected Lookup to still return the record, got %#v (ok=%v)", rec, ok)
	}
	if !rec.Expired(time.Now()) {
		t.Fatalf("expected record to be expired")
	}
}

func TestStore_SaveAtomicAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "auth.json")

	s := &Store{}
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s.Set(resource, Record{Token: "tok", Source: "client-credentials", ExpiresAt: exp})
	if err := SaveAtomic(path, s); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	if runtime.GOOS != "windows" {
		st, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if st.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600 perms, got %o", st.Mode().Perm())
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Fatalf("expected trailing newline")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec, ok := loaded.Lookup(resource + "/")
	if !ok || rec.Token != "tok" || rec.Source != "client-credentials" {
		t.Fatalf("unexpected record %#v (ok=%v)", rec, ok)
	}
	if !rec.ExpiresAt.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, rec.ExpiresAt)
	}
}

func TestStore_LoadOrEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := LoadOrEmpty(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("LoadOrEmpty: %v", err)
	}
	if st.Tokens == nil || len(st.Tokens) != 0 {
		t.Fatalf("expected empty store, got %#v", st)
	}

	path := filepath.Join(dir, "auth.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Tokens == nil {
		t.Fatalf("expected tokens map initialized")
	}
}

func TestStore_Delete(t *testing.T) {
	s := &Store{}
	s.Set(resource, Record{Token: "tok"})
	s.Delete(resource + "/")
	if _, ok := s.Lookup(resource); ok {
		t.Fatalf("expected deleted")
	}
}
