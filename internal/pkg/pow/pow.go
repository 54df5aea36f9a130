/*
Package pow implements the Proof-of-Work (PoW) gate placed in front of account sign-up.

A client fetches a challenge nonce, searches for a counter whose SHA-256 hash of
nonce+counter starts with the configured number of hex zeros, and trades the solution for a
short-lived, single-use proof token that the sign-up request must carry.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the Proof Token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is the validity period of a proof token.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is the validity period of a challenge nonce.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	// ErrNonceInvalid is returned for unknown, expired or already consumed nonces.
	ErrNonceInvalid = errors.New("nonce expired or invalid")

	// ErrProofInsufficient is returned when the hash does not meet the difficulty.
	ErrProofInsufficient = errors.New("proof does not meet difficulty requirement")
)

// Challenge is handed to the client.
type Challenge struct {
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
}

// Manager issues challenges and single-use proof tokens. It is safe for concurrent use.
type Manager struct {
	difficulty int

	mu     sync.Mutex
	nonces map[string]time.Time
	tokens map[string]time.Time

	now func() time.Time
}

// NewManager creates a Manager. Its cleanup goroutine stops when ctx is cancelled.
func NewManager(ctx context.Context, difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
		now:        time.Now,
	}

	go m.cleanupExpiredEntries(ctx)

	return m
}

// NewChallenge registers and returns a fresh challenge.
func (m *Manager) NewChallenge() Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.New().String()
	m.nonces[nonce] = m.now().Add(NonceExpiryDuration)

	return Challenge{Nonce: nonce, Difficulty: m.difficulty}
}

// Solves reports whether counter solves nonce at the given difficulty.
func Solves(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

// Verify consumes nonce if counter solves it and returns a new proof token.
func (m *Manager) Verify(nonce, counter string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonces[nonce]
	if !ok || m.now().After(expiry) {
		return "", ErrNonceInvalid
	}

	if !Solves(nonce, counter, m.difficulty) {
		return "", ErrProofInsufficient
	}

	delete(m.nonces, nonce)

	token := uuid.New().String()
	m.tokens[token] = m.now().Add(ProofTokenDuration)
	return token, nil
}

// ConsumeProofToken checks the X-PoW-Token header (or pow_token query parameter) and, if the
// token is valid, burns it so it cannot be replayed.
func (m *Manager) ConsumeProofToken(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[token]
	if !ok {
		return false
	}
	delete(m.tokens, token)

	return !m.now().After(expiry)
}

func (m *Manager) cleanupExpiredEntries(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for nonce, expiry := range m.nonces {
				if now.After(expiry) {
					delete(m.nonces, nonce)
				}
			}
			for token, expiry := range m.tokens {
				if now.After(expiry) {
					delete(m.tokens, token)
				}
			}
			m.mu.Unlock()
		}
	}
}
