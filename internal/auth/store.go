package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store persists the current identity so it survives a restart.
//
// Load reports a missing or unreadable record as (Identity{}, false, nil);
// only transport failures are returned as errors.
type Store interface {
	Save(ctx context.Context, identity Identity) error
	Load(ctx context.Context) (Identity, bool, error)
	Clear(ctx context.Context) error
}

func encodeIdentity(identity Identity) ([]byte, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("auth: encode identity: %w", err)
	}
	return data, nil
}

// decodeIdentity parses a persisted record. Anything that does not decode into
// a valid identity is treated as no session.
func decodeIdentity(data []byte) (Identity, bool) {
	if len(data) == 0 {
		return Identity{}, false
	}
	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return Identity{}, false
	}
	if err := identity.Validate(); err != nil {
		return Identity{}, false
	}
	return identity, true
}

// MemoryStore keeps the encoded record in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, identity Identity) error {
	data, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (Identity, bool, error) {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()
	identity, ok := decodeIdentity(data)
	return identity, ok, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}
