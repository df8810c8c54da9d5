package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const (
	serviceName = "evcharge"
	tokenKey    = "api-token"
)

// Source yields the current API credential, if any. The gateway, the inbox
// store, and the poller all gate their network activity on it.
type Source interface {
	// Token returns the bearer credential and whether one is present.
	Token() (string, bool)
}

// Session holds the bearer credential for the signed-in user. The token is
// cached in memory so presence checks are cheap and synchronous; writes go
// through to the system keyring so the session survives restarts.
type Session struct {
	mu    sync.Mutex
	token string
}

// Load creates a Session, restoring any previously stored token from the
// system keyring. A missing keyring entry is not an error; it just means
// nobody is signed in.
func Load() (*Session, error) {
	s := &Session{}

	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}

	item, err := ring.Get(tokenKey)
	if err != nil {
		// No stored credential; start signed out.
		return s, nil
	}

	s.token = string(item.Data)
	return s, nil
}

// Token returns the current bearer credential and whether one is present.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// SetToken stores a new credential in memory and in the system keyring.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  tokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	return nil
}

// Clear removes the credential from memory and from the system keyring.
// Every session-gated operation goes inert as soon as this returns.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(tokenKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential: %w", err)
	}

	return nil
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/evcharge/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("evcharge-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}
