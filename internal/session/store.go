package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrMissingSessionPath = errors.New("session store: file path required")
	ErrEmptyToken         = errors.New("session store: token must not be empty")
)

// Store persists the bearer token of the current session.
type Store interface {
	// Token returns the persisted token without validating it.
	Token(ctx context.Context) (string, bool, error)
	// Save replaces the persisted token.
	Save(ctx context.Context, token string) error
	// Logout clears the persisted token. Clearing an absent token succeeds.
	Logout(ctx context.Context) error
}

type fileDocument struct {
	Token   string `json:"token"`
	SavedAt int64  `json:"saved_at"`
}

// FileStore keeps the token in a small JSON document readable only by the owner.
type FileStore struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// NewFileStore constructs a store backed by the file at path.
func NewFileStore(path string) (*FileStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrMissingSessionPath
	}
	return &FileStore{path: trimmed, clock: time.Now}, nil
}

func (s *FileStore) Token(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session file: %w", err)
	}

	var document fileDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return "", false, fmt.Errorf("decode session file: %w", err)
	}
	token := strings.TrimSpace(document.Token)
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *FileStore) Save(_ context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.Marshal(fileDocument{Token: trimmed, SavedAt: s.clock().UTC().Unix()})
	if err != nil {
		return err
	}

	temp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	tempName := temp.Name()
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Chmod(tempName, 0o600); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("protect session file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("store session file: %w", err)
	}
	return nil
}

func (s *FileStore) Logout(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// MemoryStore keeps the token for the lifetime of the process only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store preloaded with token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: strings.TrimSpace(token)}
}

func (s *MemoryStore) Token(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != "", nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	s.token = trimmed
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Logout(_ context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
