// Package visitor manages the anonymous identity a reader presents when
// viewing and commenting on posts. The token is created on first use and
// persisted so later runs count as the same visitor.
package visitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// TokenPrefix starts every generated visitor token.
const TokenPrefix = "visitor_"

// Store persists a single visitor token. Load returns "" with a nil error
// when nothing has been saved yet.
type Store interface {
	Load() (string, error)
	Save(token string) error
}

// Identity hands out the visitor token backed by a Store.
type Identity struct {
	mu    sync.Mutex
	store Store
}

// New returns an Identity over store.
func New(store Store) *Identity {
	return &Identity{store: store}
}

// GetOrCreate returns the stored token, generating and saving a new one on
// first use. Concurrent callers observe the same token.
func (i *Identity) GetOrCreate() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	token, err := i.store.Load()
	if err != nil {
		return "", fmt.Errorf("load visitor token: %w", err)
	}
	if token != "" {
		return token, nil
	}

	token, err = NewToken()
	if err != nil {
		return "", err
	}
	if err := i.store.Save(token); err != nil {
		return "", fmt.Errorf("save visitor token: %w", err)
	}
	return token, nil
}

// NewToken generates a fresh visitor token. UUIDv7 keeps tokens roughly
// time ordered in the post_views index.
func NewToken() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate visitor token: %w", err)
	}
	return TokenPrefix + id.String(), nil
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	saves int
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FileStore persists the token as JSON at Path with owner-only permissions.
type FileStore struct {
	Path string
}

type fileState struct {
	VisitorToken string `json:"visitor_token"`
}

// DefaultPath is the state file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "inkwell", "visitor.json"), nil
}

func (f FileStore) Load() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var st fileState
	if err := json.Unmarshal(b, &st); err != nil {
		return "", fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return st.VisitorToken, nil
}

func (f FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(fileState{VisitorToken: token}, "", "  ")
	if err != nil {
		return err
	}
	// Write then rename so a crash never leaves a truncated file.
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
