package credential

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	credentialsFile = "credentials.toml"
	currentVersion  = 1

	dirPerm  os.FileMode = 0700
	filePerm os.FileMode = 0600
)

// fileContents is the on-disk layout of credentials.toml.
type fileContents struct {
	Version    int            `toml:"version"`
	OpenRouter openRouterAuth `toml:"openrouter"`
}

type openRouterAuth struct {
	APIKey string `toml:"api_key"`
}

// FileStore keeps the key in a TOML file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path. The file is
// created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes token, replacing any stored key.
func (s *FileStore) Save(token string) error {
	contents := fileContents{
		Version:    currentVersion,
		OpenRouter: openRouterAuth{APIKey: token},
	}
	return s.write(contents)
}

// Get returns the stored key or ErrNotFound.
func (s *FileStore) Get() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading credentials: %w", err)
	}

	var contents fileContents
	if err := toml.Unmarshal(data, &contents); err != nil {
		return "", fmt.Errorf("parsing credentials: %w", err)
	}
	if contents.OpenRouter.APIKey == "" {
		return "", ErrNotFound
	}
	return contents.OpenRouter.APIKey, nil
}

// Has reports whether a key is stored.
func (s *FileStore) Has() bool {
	return has(s)
}

// Clear removes the credentials file. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

func (s *FileStore) write(contents fileContents) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(contents); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(s.path, filePerm); err != nil {
		return fmt.Errorf("setting credentials permissions: %w", err)
	}
	return nil
}
