package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TokenStore 将不透明的 bearer 令牌保存在单个文件中
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore 返回以 path 为存储的令牌仓库，文件按需创建
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path 返回存储文件路径
func (s *TokenStore) Path() string {
	return s.path
}

// Save 替换已保存的令牌
func (s *TokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("refusing to store empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Load 返回已保存的凭证，没有则返回 ErrNotLoggedIn
func (s *TokenStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, ErrNotLoggedIn
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return Credentials{}, ErrNotLoggedIn
	}
	return Credentials{Token: token}, nil
}

// Clear 清除已保存的令牌，清空空仓库不算错误
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// Current 加载凭证并拒绝本地已过期的令牌，同时将其清除，
// 下次运行直接进入登录。
func (s *TokenStore) Current(now time.Time) (Credentials, error) {
	creds, err := s.Load()
	if err != nil {
		return Credentials{}, err
	}
	if creds.Expired(now) {
		if err := s.Clear(); err != nil {
			return Credentials{}, err
		}
		return Credentials{}, ErrTokenExpired
	}
	return creds, nil
}
