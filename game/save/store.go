package save

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var (
	ErrInvalidSlot    = errors.New("invalid save slot name")
	ErrUnknownBackend = errors.New("unknown save backend")
)

// Persistable is state that can be written to and restored from a string
type Persistable interface {
	SaveID() string
	Serialize() (string, error)
	Deserialize(input string) error
}

// Store is a slotted key-value store. Get reports false for a missing key.
type Store interface {
	Get(ctx context.Context, slot, key string) (string, bool, error)
	Put(ctx context.Context, slot, key, value string) error
	DeleteSlot(ctx context.Context, slot string) error
	ListSlots(ctx context.Context) ([]string, error)
	Close() error
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateSlot checks that a slot name is safe to use as a file or bucket name
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) || slot == "." || slot == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// Open returns the store for a backend name. dsn is a directory for "file",
// a database path for "bolt" and a connection string for "postgres".
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(dsn)
	case "bolt":
		return NewBoltStore(dsn)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// MemoryStore keeps slots in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, slot, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[slot][key]
	return v, ok, nil
}

func (m *MemoryStore) Put(ctx context.Context, slot, key, value string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.slots[slot]
	if !ok {
		entries = make(map[string]string)
		m.slots[slot] = entries
	}
	entries[key] = value
	return nil
}

func (m *MemoryStore) DeleteSlot(ctx context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slot)
	return nil
}

func (m *MemoryStore) ListSlots(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]string, 0, len(m.slots))
	for s := range m.slots {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	return slots, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
