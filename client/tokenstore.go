package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Token kinds, fixed so a stored file survives client upgrades.
const (
	AccessTokenKey  = "trustkey_access_token"
	RefreshTokenKey = "trustkey_refresh_token"
)

// TokenStore holds the token pair between runs. Implementations must be
// safe for concurrent use. Storage failures degrade to "no token"; they
// never fail a request.
type TokenStore interface {
	Get(kind string) string
	Set(kind, value string)
	Clear()
	IsAuthenticated() bool
}

// FileTokenStore keeps tokens in a small JSON file, the closest
// equivalent to browser local storage for a CLI or daemon client.
type FileTokenStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileTokenStore(path string, logger *zap.Logger) *FileTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileTokenStore{path: path, logger: logger}
}

func (s *FileTokenStore) Get(kind string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()[kind]
}

func (s *FileTokenStore) Set(kind, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.load()
	tokens[kind] = value
	s.save(tokens)
}

func (s *FileTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("token store clear failed", zap.Error(err))
	}
}

func (s *FileTokenStore) IsAuthenticated() bool {
	return s.Get(AccessTokenKey) != ""
}

func (s *FileTokenStore) load() map[string]string {
	tokens := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("token store read failed", zap.Error(err))
		}
		return tokens
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		s.logger.Warn("token store is corrupted, starting empty", zap.Error(err))
		return make(map[string]string)
	}
	return tokens
}

func (s *FileTokenStore) save(tokens map[string]string) {
	data, err := json.Marshal(tokens)
	if err != nil {
		s.logger.Warn("token store encode failed", zap.Error(err))
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			s.logger.Warn("token store mkdir failed", zap.Error(err))
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("token store write failed", zap.Error(err))
	}
}

// MemoryTokenStore is the in-process store used in tests.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]string)}
}

func (s *MemoryTokenStore) Get(kind string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[kind]
}

func (s *MemoryTokenStore) Set(kind, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[kind] = value
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

func (s *MemoryTokenStore) IsAuthenticated() bool {
	return s.Get(AccessTokenKey) != ""
}
