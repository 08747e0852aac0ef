package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Session remembers the last conversation each local identity had open, so
// the chat client can reopen it on the next start.
type Session struct {
	// LastCounterpart maps a local identity to the counterpart it last
	// selected.
	LastCounterpart map[string]string `yaml:"last_counterpart,omitempty"`
	// UpdatedAt is when the session was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// Counterpart returns the remembered counterpart for user.
func (s *Session) Counterpart(user string) string {
	if s == nil || s.LastCounterpart == nil {
		return ""
	}
	return s.LastCounterpart[user]
}

// Remember records counterpart as user's open conversation. An empty
// counterpart forgets it.
func (s *Session) Remember(user, counterpart string) {
	user = strings.TrimSpace(user)
	if user == "" {
		return
	}
	if s.LastCounterpart == nil {
		s.LastCounterpart = make(map[string]string)
	}
	if counterpart == "" {
		delete(s.LastCounterpart, user)
	} else {
		s.LastCounterpart[user] = counterpart
	}
	s.UpdatedAt = time.Now()
}

// SessionStore loads and saves the session file.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a session store at path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk.
// Returns an empty session if the file doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return session, nil
}

// Save writes the session to disk.
func (s *SessionStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
