// Package history keeps chat transcripts on disk so a conversation can be
// listed, reopened and eventually expired.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/maximbilan/orchat/internal/openrouter"
)

const (
	// DirPerm is the permission for the history directory (0700 = rwx------)
	DirPerm os.FileMode = 0700
	// FilePerm is the permission for transcript files (0600 = rw-------)
	FilePerm os.FileMode = 0600

	titleLength = 60
)

var (
	// ErrNotFound is returned when no live conversation matches an ID.
	ErrNotFound = errors.New("conversation not found")
	// ErrAmbiguous is returned by Resolve when a prefix matches several
	// conversations.
	ErrAmbiguous = errors.New("conversation ID prefix is ambiguous")
)

// Conversation is one saved chat.
type Conversation struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Model     string               `json:"model"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Messages  []openrouter.Message `json:"messages"`
}

// NewConversation starts an empty conversation with a fresh ID.
func NewConversation(model string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages and derives the title from the first user message.
func (c *Conversation) Append(msgs ...openrouter.Message) {
	c.Messages = append(c.Messages, msgs...)
	if c.Title != "" {
		return
	}
	for _, m := range c.Messages {
		if m.Role == openrouter.RoleUser {
			c.Title = makeTitle(m.Content)
			return
		}
	}
}

func makeTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= titleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:titleLength-1]) + "…"
}

// Store reads and writes conversations as <id>.json files in one directory.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New opens the store in dir, creating it if needed. Conversations not
// updated for ttlDays are treated as gone; zero keeps them forever.
func New(dir string, ttlDays int) (*Store, error) {
	if ttlDays < 0 {
		return nil, fmt.Errorf("history TTL days must be non-negative, got %d", ttlDays)
	}
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{
		dir: dir,
		ttl: time.Duration(ttlDays) * 24 * time.Hour,
		now: time.Now,
	}, nil
}

// Dir returns the directory holding the transcripts.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes c, stamping UpdatedAt.
func (s *Store) Save(c *Conversation) error {
	path, err := s.path(c.ID)
	if err != nil {
		return err
	}
	c.UpdatedAt = s.now()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := os.WriteFile(path, data, FilePerm); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	return nil
}

// Load returns the conversation with the given ID. Expired conversations
// are removed and reported as ErrNotFound.
func (s *Store) Load(id string) (*Conversation, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	c, err := readConversation(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.expired(c) {
		_ = os.Remove(path)
		return nil, ErrNotFound
	}
	return c, nil
}

// Resolve expands a full ID or a unique ID prefix into a full ID.
func (s *Store) Resolve(prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", ErrNotFound
	}
	if _, err := uuid.Parse(prefix); err == nil {
		return prefix, nil
	}

	list, err := s.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, c := range list {
		if strings.HasPrefix(c.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", ErrNotFound
	}
	return match, nil
}

// List returns every live conversation, most recently updated first.
// Unreadable files are skipped.
func (s *Store) List() ([]*Conversation, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var list []*Conversation
	for _, e := range entries {
		id, ok := idFromName(e)
		if !ok {
			continue
		}
		c, err := readConversation(filepath.Join(s.dir, e.Name()))
		if err != nil || c.ID != id || s.expired(c) {
			continue
		}
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

// Delete removes the conversation with the given ID.
func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// Prune deletes expired conversations and reports how many were removed.
func (s *Store) Prune() (int, error) {
	if s.ttl == 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if _, ok := idFromName(e); !ok {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		c, err := readConversation(path)
		if err != nil || !s.expired(c) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to delete conversation: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) expired(c *Conversation) bool {
	return s.ttl > 0 && s.now().Sub(c.UpdatedAt) > s.ttl
}

// path maps an ID to its file. Only canonical UUIDs are accepted, which
// also keeps paths inside the store directory.
func (s *Store) path(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return "", fmt.Errorf("invalid conversation ID %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func idFromName(e os.DirEntry) (string, bool) {
	if e.IsDir() {
		return "", false
	}
	id, ok := strings.CutSuffix(e.Name(), ".json")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func readConversation(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}
	return &c, nil
}
