package authstore

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record is a cached access token for one resource URI.
type Record struct {
	Token     string    `json:"token"`
	Source    string    `json:"source,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the record has a known expiry at or before now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

type Store struct {
	Tokens map[string]Record `json:"tokens"`
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		h, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine config dir")
		}
		dir = filepath.Join(h, ".config")
	}
	return filepath.Join(dir, "pbiembed", "auth.json"), nil
}

func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var s Store
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Tokens == nil {
		s.Tokens = map[string]Record{}
	}
	return &s, nil
}

// LoadOrEmpty is Load, except a missing file yields an empty store.
func LoadOrEmpty(path string) (*Store, error) {
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Store{Tokens: map[string]Record{}}, nil
	}
	return s, err
}

func SaveAtomic(path string, s *Store) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	if s.Tokens == nil {
		s.Tokens = map[string]Record{}
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func normalizeResource(resource string) string {
	return strings.TrimRight(strings.TrimSpace(resource), "/")
}

// Lookup returns the raw record for a resource, expired or not.
func (s *Store) Lookup(resource string) (Record, bool) {
	if s == nil || s.Tokens == nil {
		return Record{}, false
	}
	resource = normalizeResource(resource)
	if resource == "" {
		return Record{}, false
	}
	rec, ok := s.Tokens[resource]
	if !ok || strings.TrimSpace(rec.Token) == "" {
		return Record{}, false
	}
	rec.Token = strings.TrimSpace(rec.Token)
	return rec, true
}

// Get returns a usable token for a resource. Expired tokens are not returned.
func (s *Store) Get(resource string) (string, bool) {
	rec, ok := s.Lookup(resource)
	if !ok || rec.Expired(time.Now()) {
		return "", false
	}
	return rec.Token, true
}

func (s *Store) Set(resource string, rec Record) {
	if s.Tokens == nil {
		s.Tokens = map[string]Record{}
	}
	resource = normalizeResource(resource)
	rec.Token = strings.TrimSpace(rec.Token)
	if resource == "" || rec.Token == "" {
		return
	}
	if !rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = rec.ExpiresAt.UTC()
	}
	rec.UpdatedAt = time.Now().UTC()
	s.Tokens[resource] = rec
}

func (s *Store) Delete(resource string) {
	if s == nil || s.Tokens == nil {
		return
	}
	resource = normalizeResource(resource)
	if resource == "" {
		return
	}
	delete(s.Tokens, resource)
}
