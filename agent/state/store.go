package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var ErrStateNotFound = errors.New("conversation not found")

const defaultStoreTTL = 24 * time.Hour

// Store is the lookup contract used by the orchestrator between turns.
type Store interface {
	Load(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, id string) error
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps encoded conversation snapshots in process memory, so a
// caller never shares a *Conversation with the store. Entries idle for
// longer than the TTL are dropped on access. A TTL of 0 disables expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]storeEntry
	ttl     time.Duration
	now     func() time.Time
}

type storeEntry struct {
	payload []byte
	savedAt time.Time
}

func NewMemoryStore(opts ...StoreOption) (*MemoryStore, error) {
	store := &MemoryStore{
		entries: make(map[string]storeEntry),
		ttl:     defaultStoreTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Conversation, error) {
	key, err := storeKey(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && s.expired(entry) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	var conv Conversation
	if err := json.Unmarshal(entry.payload, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if err := conv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation loaded from store: %w", err)
	}
	return &conv, nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Conversation) error {
	if c == nil {
		return ErrNilConversation
	}
	key, err := storeKey(c.ID)
	if err != nil {
		return err
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now().UTC()
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	s.mu.Lock()
	s.entries[key] = storeEntry{payload: payload, savedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	key, err := storeKey(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) expired(e storeEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.savedAt) > s.ttl
}

func storeKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return id, nil
}
