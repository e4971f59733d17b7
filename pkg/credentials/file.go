package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a file-based token store for CLI use.
// Tokens are stored as JSON files in a config directory, mode 0600.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based token store.
// If baseDir is empty, defaults to ~/.config/netweave/tokens/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "netweave", "tokens")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) tokenPath(project, scope string) string {
	// Keys may contain path separators; flatten them.
	name := filepath.Base(project) + "_" + filepath.Base(scope) + ".json"
	return filepath.Join(s.baseDir, name)
}

func (s *FileStore) Get(ctx context.Context, project, scope string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.tokenPath(project, scope)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if tok.IsExpired() {
		os.Remove(path)
		return nil, ErrExpired
	}
	return &tok, nil
}

func (s *FileStore) Set(ctx context.Context, tok *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	path := s.tokenPath(tok.Project, tok.Scope)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, project, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.tokenPath(project, scope)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for token files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
