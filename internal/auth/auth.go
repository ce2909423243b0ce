package auth

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Failed attempts allowed before a lockout starts. The limiter
	// reports remaining attempts counting down to zero, then locks.
	maxFailures = 3

	// LockoutDuration is how long a caller is locked out after
	// exhausting the attempt budget.
	LockoutDuration = 30 * time.Second
)

// Result reports the outcome of a login attempt.
type Result struct {
	OK bool

	// AttemptsRemaining is set on a failed attempt before lockout
	// (-1 when not applicable).
	AttemptsRemaining int

	// RetryAfter is the remaining lockout in whole seconds; non-zero
	// means the attempt was rejected without checking the password.
	RetryAfter int
}

type attemptState struct {
	failures    int
	lockedUntil time.Time
}

// Manager verifies the admin password and tracks failed attempts per
// caller key (remote IP), enforcing a timed lockout.
type Manager struct {
	passwordHash []byte

	mu       sync.Mutex
	attempts map[string]*attemptState

	now func() time.Time
}

// New creates a Manager from a plaintext password, hashing it with bcrypt.
func New(password string) (*Manager, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return NewFromHash(string(hash))
}

// NewFromHash creates a Manager from a pre-computed bcrypt hash.
func NewFromHash(hash string) (*Manager, error) {
	if hash == "" {
		return nil, errors.New("password hash cannot be empty")
	}
	return &Manager{
		passwordHash: []byte(hash),
		attempts:     make(map[string]*attemptState),
		now:          time.Now,
	}, nil
}

// Verify checks password for the caller identified by key. Lockout
// state is consulted before the password so a locked caller learns
// nothing about correctness.
func (m *Manager) Verify(key, password string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	st := m.attempts[key]

	if st != nil && now.Before(st.lockedUntil) {
		remaining := int(st.lockedUntil.Sub(now).Seconds())
		if remaining < 1 {
			remaining = 1
		}
		return Result{AttemptsRemaining: -1, RetryAfter: remaining}
	}

	if st != nil && !st.lockedUntil.IsZero() && !now.Before(st.lockedUntil) {
		// Lockout expired; start fresh.
		delete(m.attempts, key)
		st = nil
	}

	if bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil {
		delete(m.attempts, key)
		return Result{OK: true, AttemptsRemaining: -1}
	}

	if st == nil {
		st = &attemptState{}
		m.attempts[key] = st
	}
	st.failures++

	if st.failures > maxFailures {
		st.lockedUntil = now.Add(LockoutDuration)
		return Result{AttemptsRemaining: -1, RetryAfter: int(LockoutDuration.Seconds())}
	}

	return Result{AttemptsRemaining: maxFailures - st.failures}
}
