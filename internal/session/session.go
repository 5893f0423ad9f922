package session

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/btnalit/clash-cfg-edit/internal/logger"
	"github.com/btnalit/clash-cfg-edit/internal/utils"
)

const (
	// TokenTTL is the fixed lifetime of an issued bearer token.
	TokenTTL = 24 * time.Hour

	// MaxLoginAttempts failed logins within LoginBlockTime lock the
	// client identity out until the window elapses.
	MaxLoginAttempts = 5
	LoginBlockTime   = 15 * time.Minute

	sweepInterval = time.Hour
)

type attempt struct {
	count       int
	lastAttempt time.Time
}

// Manager holds the process-wide token table and the per-client failed
// login counters. Neither survives a restart.
type Manager struct {
	l        *logger.Logger
	locker   sync.Mutex
	tokens   map[string]time.Time
	attempts map[string]*attempt
	now      func() time.Time
}

// Issue creates a new opaque bearer token valid for TokenTTL.
func (m *Manager) Issue() (token string, expiresIn time.Duration, err error) {
	token, err = utils.SecretHex(32)
	if err != nil {
		return "", 0, errors.Wrap(err, "session: cannot generate token")
	}

	m.locker.Lock()
	defer m.locker.Unlock()

	m.tokens[token] = m.now().Add(TokenTTL)
	return token, TokenTTL, nil
}

// Verify reports whether the token is known and unexpired. Expired tokens
// are evicted on lookup.
func (m *Manager) Verify(token string) bool {
	m.locker.Lock()
	defer m.locker.Unlock()

	expiry, found := m.tokens[token]
	if !found {
		return false
	}
	if m.now().After(expiry) {
		delete(m.tokens, token)
		return false
	}
	return true
}

// Revoke removes the token immediately (logout).
func (m *Manager) Revoke(token string) {
	m.locker.Lock()
	defer m.locker.Unlock()

	delete(m.tokens, token)
}

// Blocked reports whether the client identity is locked out, and if so
// for how much longer. A lockout whose window has elapsed resets the
// counter.
func (m *Manager) Blocked(clientID string) (bool, time.Duration) {
	m.locker.Lock()
	defer m.locker.Unlock()

	a, found := m.attempts[clientID]
	if !found || a.count < MaxLoginAttempts {
		return false, 0
	}

	elapsed := m.now().Sub(a.lastAttempt)
	if elapsed >= LoginBlockTime {
		delete(m.attempts, clientID)
		return false, 0
	}
	return true, LoginBlockTime - elapsed
}

// RecordFailure increments the client's failed login counter and returns
// the number of attempts left before the lockout kicks in.
func (m *Manager) RecordFailure(clientID string) (remaining int) {
	m.locker.Lock()
	defer m.locker.Unlock()

	a, found := m.attempts[clientID]
	if !found {
		a = &attempt{}
		m.attempts[clientID] = a
	}
	a.count++
	a.lastAttempt = m.now()

	remaining = MaxLoginAttempts - a.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// RecordSuccess clears the client's failed login counter.
func (m *Manager) RecordSuccess(clientID string) {
	m.locker.Lock()
	defer m.locker.Unlock()

	delete(m.attempts, clientID)
}

// Sweep drops expired tokens. It also runs periodically so abandoned
// sessions do not accumulate; the per-lookup eviction in Verify and the
// sweep race harmlessly.
func (m *Manager) Sweep() {
	m.locker.Lock()
	defer m.locker.Unlock()

	now := m.now()
	swept := 0
	for token, expiry := range m.tokens {
		if now.After(expiry) {
			delete(m.tokens, token)
			swept++
		}
	}

	if swept > 0 {
		m.l.Debug("session: swept expired tokens", zap.Int("count", swept))
	}
}

func New(l *logger.Logger) *Manager {
	return &Manager{
		l:        l,
		tokens:   map[string]time.Time{},
		attempts: map[string]*attempt{},
		now:      time.Now,
	}
}
