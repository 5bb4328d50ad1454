package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	dotenvFile = ".env"

	// EnvVar is the variable the dotenv backend reads and writes.
	EnvVar = "OPENROUTER_API_KEY"
)

// DotenvStore keeps the key as OPENROUTER_API_KEY in a .env file, so the
// same file can be sourced by shell scripts. Other variables in the file
// are preserved.
type DotenvStore struct {
	path string
}

// NewDotenvStore returns a store backed by the .env file at path.
func NewDotenvStore(path string) *DotenvStore {
	return &DotenvStore{path: path}
}

// Save sets OPENROUTER_API_KEY, replacing any previous value.
func (s *DotenvStore) Save(token string) error {
	env, err := s.read()
	if err != nil {
		return err
	}
	env[EnvVar] = token
	return s.write(env)
}

// Get returns the stored key or ErrNotFound.
func (s *DotenvStore) Get() (string, error) {
	env, err := s.read()
	if err != nil {
		return "", err
	}
	token := env[EnvVar]
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Has reports whether a key is stored.
func (s *DotenvStore) Has() bool {
	return has(s)
}

// Clear drops OPENROUTER_API_KEY and removes the file once it is empty.
func (s *DotenvStore) Clear() error {
	env, err := s.read()
	if err != nil {
		return err
	}
	delete(env, EnvVar)
	if len(env) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", s.path, err)
		}
		return nil
	}
	return s.write(env)
}

func (s *DotenvStore) read() (map[string]string, error) {
	env, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return env, nil
}

func (s *DotenvStore) write(env map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, filePerm); err != nil {
		return fmt.Errorf("setting %s permissions: %w", s.path, err)
	}
	return nil
}
