package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btnalit/clash-cfg-edit/internal/logger"
)

func newTestManager() (*Manager, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := New(logger.NewNop())
	m.now = func() time.Time { return now }
	return m, &now
}

func TestIssueAndVerify(t *testing.T) {
	m, _ := newTestManager()

	token, expiresIn, err := m.Issue()
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 random bytes, hex-encoded
	assert.Equal(t, TokenTTL, expiresIn)

	assert.True(t, m.Verify(token))
	assert.False(t, m.Verify("no-such-token"))
}

func TestVerifyAfterExpiry(t *testing.T) {
	m, now := newTestManager()

	token, _, err := m.Issue()
	require.NoError(t, err)

	*now = now.Add(TokenTTL - time.Second)
	assert.True(t, m.Verify(token))

	*now = now.Add(2 * time.Second)
	assert.False(t, m.Verify(token))

	// lazy eviction removed it; still invalid on a second lookup
	assert.False(t, m.Verify(token))
}

func TestRevoke(t *testing.T) {
	m, _ := newTestManager()

	token, _, err := m.Issue()
	require.NoError(t, err)

	m.Revoke(token)
	assert.False(t, m.Verify(token))
}

func TestTokensAreUnique(t *testing.T) {
	m, _ := newTestManager()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, _, err := m.Issue()
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}

func TestLockoutAfterMaxFailures(t *testing.T) {
	m, _ := newTestManager()

	for i := 0; i < MaxLoginAttempts; i++ {
		blocked, _ := m.Blocked("10.0.0.1")
		assert.False(t, blocked)
		m.RecordFailure("10.0.0.1")
	}

	blocked, wait := m.Blocked("10.0.0.1")
	assert.True(t, blocked)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, LoginBlockTime)
}

func TestLockoutExpiresAfterWindow(t *testing.T) {
	m, now := newTestManager()

	for i := 0; i < MaxLoginAttempts; i++ {
		m.RecordFailure("10.0.0.1")
	}

	*now = now.Add(LoginBlockTime + time.Second)

	blocked, _ := m.Blocked("10.0.0.1")
	assert.False(t, blocked)

	// the stale counter was reset, one new failure does not re-block
	m.RecordFailure("10.0.0.1")
	blocked, _ = m.Blocked("10.0.0.1")
	assert.False(t, blocked)
}

func TestSuccessClearsCounter(t *testing.T) {
	m, _ := newTestManager()

	m.RecordFailure("10.0.0.1")
	m.RecordFailure("10.0.0.1")
	m.RecordSuccess("10.0.0.1")

	remaining := m.RecordFailure("10.0.0.1")
	assert.Equal(t, MaxLoginAttempts-1, remaining)
}

func TestFailuresTrackedPerClient(t *testing.T) {
	m, _ := newTestManager()

	for i := 0; i < MaxLoginAttempts; i++ {
		m.RecordFailure("10.0.0.1")
	}

	blocked, _ := m.Blocked("10.0.0.2")
	assert.False(t, blocked)
}

func TestSweepRemovesExpiredTokens(t *testing.T) {
	m, now := newTestManager()

	expired, _, err := m.Issue()
	require.NoError(t, err)

	*now = now.Add(TokenTTL + time.Minute)

	fresh, _, err := m.Issue()
	require.NoError(t, err)

	m.Sweep()

	m.locker.Lock()
	_, expiredKept := m.tokens[expired]
	_, freshKept := m.tokens[fresh]
	m.locker.Unlock()

	assert.False(t, expiredKept)
	assert.True(t, freshKept)
}
