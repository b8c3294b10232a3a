// Package credential stores the API token the client authenticates with.
package credential

import (
	"context"
	"errors"
	"sync"
)

// ErrNoToken is returned by Token when nothing is stored.
var ErrNoToken = errors.New("credential: no token stored")

// Store retrieves, saves and deletes the opaque API token.
type Store interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Memory keeps the token in process memory.
type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *Memory) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
