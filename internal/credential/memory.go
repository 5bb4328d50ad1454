package credential

import "sync"

// MemoryStore keeps the key in process memory. It backs tests and
// environment-variable sessions where nothing should touch disk.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	err   error
}

// NewMemoryStore returns a store preloaded with token (may be empty).
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// FailWith makes subsequent Save calls return err, simulating unavailable
// persistence.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.token = token
	return nil
}

func (s *MemoryStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotFound
	}
	return s.token, nil
}

func (s *MemoryStore) Has() bool {
	return has(s)
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
