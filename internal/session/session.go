// Package session owns the credential issued at login.  The token is
// kept in memory for the life of the process and mirrored to a durable
// Store so that it survives restarts until an explicit logout.
//
// Initialization order: call Load once before anything renders or
// issues authenticated requests.  Token falls back to the Store when
// the in-memory copy is empty, so a credential written by another
// process (for example `ticketctl login` in a second terminal) is still
// picked up.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Store persists the session token.  Load returns "" and a nil error
// when no token is stored.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Session is the process-wide holder of the credential.  It is safe for
// concurrent use.
type Session struct {
	store Store

	mu    sync.RWMutex
	token string
}

// New returns an empty session backed by store.
func New(store Store) *Session {
	return &Session{store: store}
}

// Load reads the stored token into memory.
func (s *Session) Load(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
	return nil
}

// Set installs token and persists it.  The in-memory copy is updated
// even if persisting fails.
func (s *Session) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if err := s.store.Save(ctx, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear forgets the token in memory and in the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the current credential, consulting the store when the
// in-memory copy is empty.  It returns "" when the user is logged out.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token != "" {
		return token, nil
	}

	stored, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	stored = strings.TrimSpace(stored)
	if stored != "" {
		s.mu.Lock()
		if s.token == "" {
			s.token = stored
		}
		token = s.token
		s.mu.Unlock()
	}
	return token, nil
}

// Claims decodes the current token.  ok is false when there is no token
// or it is not a JWT.
func (s *Session) Claims(ctx context.Context) (claims Claims, ok bool, err error) {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return Claims{}, false, err
	}
	claims, ok = ParseClaims(token)
	return claims, ok, nil
}
