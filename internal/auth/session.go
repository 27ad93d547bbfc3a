// Package auth owns the session token pair: loaded once at startup,
// replaced on login, and cleared on logout.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quipcam/quipcam/internal/storage"
)

// Storage keys. They are shared with every install, so never rename them.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// ErrOpaqueToken is returned by Claims when the access token is not a JWT.
var ErrOpaqueToken = errors.New("access token is opaque")

// Session holds at most one access/refresh token pair backed by a Store.
// All methods are safe for concurrent use.
type Session struct {
	store storage.Store

	mu      sync.RWMutex
	access  string
	refresh string
}

// NewSession creates a session on top of store. Call Load before use.
func NewSession(store storage.Store) *Session {
	return &Session{store: store}
}

// Load reads the persisted token pair into memory.
func (s *Session) Load() error {
	access, _, err := s.store.Get(AccessTokenKey)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := s.store.Get(RefreshTokenKey)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()
	return nil
}

// Token returns the access token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the refresh token, or "".
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// HasToken reports whether an access token is present.
func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// Save replaces the token pair. An empty refresh token drops any previous
// one so a stale refresh token never outlives its access token.
func (s *Session) Save(access, refresh string) error {
	if access == "" {
		return errors.New("save session: empty access token")
	}
	s.mu.RLock()
	prevAccess, prevRefresh := s.access, s.refresh
	s.mu.RUnlock()

	if err := s.writePair(access, refresh); err != nil {
		// Put back the pair memory still holds so the two never disagree.
		if rerr := s.restore(prevAccess, prevRefresh); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()
	return nil
}

func (s *Session) writePair(access, refresh string) error {
	if err := s.store.Set(AccessTokenKey, access); err != nil {
		return err
	}
	if refresh != "" {
		return s.store.Set(RefreshTokenKey, refresh)
	}
	return s.store.Remove(RefreshTokenKey)
}

func (s *Session) restore(access, refresh string) error {
	if access == "" {
		return s.store.Remove(AccessTokenKey, RefreshTokenKey)
	}
	return s.writePair(access, refresh)
}

// Clear removes both tokens from memory and storage.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.access, s.refresh = "", ""
	s.mu.Unlock()
	if err := s.store.Remove(AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// TokenInfo is what the client can tell about its access token without
// the server's signing key.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that is before now.
func (ti TokenInfo) Expired(now time.Time) bool {
	return !ti.ExpiresAt.IsZero() && now.After(ti.ExpiresAt)
}

// Claims decodes the access token as an unverified JWT. The signature is
// not checked; the result is for display only.
func (s *Session) Claims() (TokenInfo, error) {
	token := s.Token()
	if token == "" {
		return TokenInfo{}, errors.New("not logged in")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, ErrOpaqueToken
	}

	var info TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if info.Subject == "" {
		// flask-jwt-extended style identity claim
		if id, ok := claims["identity"]; ok {
			info.Subject = fmt.Sprint(id)
		}
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
