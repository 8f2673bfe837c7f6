// ABOUTME: Bearer token lifecycle: env/file lookup, save, clear, expiry check
// ABOUTME: Uses unverified JWT claim parsing for local expiry inspection

package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EnvToken is the environment variable checked before the token file.
const EnvToken = "DOCCHAT_TOKEN"

// ErrNoToken is returned when no credential is available from any source.
var ErrNoToken = errors.New("not logged in")

// TokenStore resolves, persists, and discards the bearer token. Lookup
// order is the DOCCHAT_TOKEN environment variable, then the token file.
// Safe for concurrent use.
type TokenStore struct {
	mu     sync.Mutex
	path   string
	cached string
	logger *slog.Logger
}

// NewTokenStore creates a store with the default token file location
// under the user config directory.
func NewTokenStore(logger *slog.Logger) (*TokenStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	return NewTokenStoreAt(filepath.Join(dir, "docchat", "token"), logger), nil
}

// NewTokenStoreAt creates a store with an explicit token file path.
func NewTokenStoreAt(path string, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		path:   path,
		logger: logger.With("component", "auth"),
	}
}

// Token returns the current bearer token. The environment variable takes
// precedence over the file; file reads are cached until Save or Clear.
// Returns ErrNoToken when neither source has one.
func (s *TokenStore) Token() (string, error) {
	if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
		return env, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	s.cached = token
	return token, nil
}

// Save persists a token to the token file with owner-only permissions.
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	s.cached = token
	s.logger.Debug("token saved", "path", s.path)
	return nil
}

// Clear removes the stored token. A missing file is not an error.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}

	s.logger.Debug("token cleared")
	return nil
}

// Expired reports whether the token's exp claim has passed. Tokens that
// are not JWTs or carry no exp claim never expire locally; the server
// decides. The signature is deliberately not verified here.
func Expired(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
