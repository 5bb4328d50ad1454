// Package credential persists the single OpenRouter API key orchat uses.
//
// A Store holds at most one token. Save overwrites, Clear removes, and Get
// reports ErrNotFound when nothing is stored. Tokens are opaque: no store
// inspects their shape.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Get when no token is stored.
var ErrNotFound = errors.New("credential: no API key stored")

// Store is the persistence contract shared by every backend.
type Store interface {
	Save(token string) error
	Get() (string, error)
	Has() bool
	Clear() error
}

// Backend names accepted by Open and the credential_store config key.
const (
	BackendFile   = "file"
	BackendDotenv = "dotenv"
)

// Open returns the backend named kind rooted at dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dir, credentialsFile)), nil
	case BackendDotenv:
		return NewDotenvStore(filepath.Join(dir, dotenvFile)), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q (want %q or %q)", kind, BackendFile, BackendDotenv)
	}
}

// has implements Store.Has in terms of Get for every backend.
func has(s Store) bool {
	token, err := s.Get()
	return err == nil && token != ""
}
