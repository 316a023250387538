// Package session holds the single connected account of the client.
package session

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Session is written once by the connect workflow and read by every other.
type Session struct {
	id string

	mu          sync.RWMutex
	account     common.Address
	connected   bool
	connectedAt time.Time
}

func New() *Session {
	return &Session{id: uuid.NewString()}
}

// ID is a random identifier used to correlate log lines.
func (s *Session) ID() string { return s.id }

// Connect records account as the connected account. It only succeeds once;
// later calls leave the first account in place and return false.
func (s *Session) Connect(account common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return false
	}
	s.account = account
	s.connected = true
	s.connectedAt = time.Now()
	return true
}

// Account returns the connected account and whether one is set.
func (s *Session) Account() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, s.connected
}

// ConnectedAt returns when the account was connected (zero if never).
func (s *Session) ConnectedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedAt
}
