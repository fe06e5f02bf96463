// Package verification provides the short-lived confirmation codes that
// guard destructive admin actions (exam deletion). The store is process-local
// by contract: codes do not survive a restart and are not shared between
// replicas.
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 10 * time.Minute

	codeDigits = 6
)

type entry struct {
	code      string
	expiresAt time.Time
}

// CodeStore issues and verifies expiring confirmation codes keyed by exam id.
// Safe for concurrent use.
type CodeStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uint]entry
	now     func() time.Time
}

func NewCodeStore(ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CodeStore{
		ttl:     ttl,
		entries: make(map[uint]entry),
		now:     time.Now,
	}
}

// Issue generates a fresh 6-digit code for the exam, replacing any earlier
// code for the same exam.
func (s *CodeStore) Issue(examID uint) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.entries[examID] = entry{code: code, expiresAt: s.now().Add(s.ttl)}
	return code, nil
}

// Verify checks the code for the exam and consumes it on success. An expired
// or unknown code fails verification.
func (s *CodeStore) Verify(examID uint, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()

	e, ok := s.entries[examID]
	if !ok || e.code != code {
		return false
	}
	delete(s.entries, examID)
	return true
}

// Len reports the number of live codes, expired entries excluded.
func (s *CodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	return len(s.entries)
}

func (s *CodeStore) purgeLocked() {
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
