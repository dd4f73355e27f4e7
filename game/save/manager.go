package save

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/klassik/logger"
)

// Manager saves and loads a set of Persistables into one slot of a Store
type Manager struct {
	store Store
	slot  string

	mu           sync.Mutex
	persistables []Persistable

	logger *logrus.Entry
}

// NewManager creates a manager writing into slot
func NewManager(store Store, slot string) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	return &Manager{
		store:  store,
		slot:   slot,
		logger: logger.Component("save").WithField("slot", slot),
	}, nil
}

// Slot returns the slot name this manager writes to
func (m *Manager) Slot() string {
	return m.slot
}

// Register adds persistables. Entries are saved and loaded in registration
// order.
func (m *Manager) Register(p ...Persistable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistables = append(m.persistables, p...)
}

func (m *Manager) registered() []Persistable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Persistable(nil), m.persistables...)
}

// Save writes every registered persistable
func (m *Manager) Save(ctx context.Context) error {
	for _, p := range m.registered() {
		data, err := p.Serialize()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", p.SaveID(), err)
		}
		if err := m.store.Put(ctx, m.slot, p.SaveID(), data); err != nil {
			return fmt.Errorf("failed to save %s: %w", p.SaveID(), err)
		}
	}
	m.logger.Info("Game saved")
	return nil
}

// Load restores every registered persistable that has an entry. It reports
// false when no entry exists at all. Missing or corrupt entries are logged
// and skipped; store errors are returned only when nothing could be read.
func (m *Manager) Load(ctx context.Context) (bool, error) {
	var (
		found bool
		errs  []error
	)

	for _, p := range m.registered() {
		id := p.SaveID()
		entry := m.logger.WithField("save_id", id)

		data, ok, err := m.store.Get(ctx, m.slot, id)
		if err != nil {
			entry.WithError(err).Error("Failed to read save entry")
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if !ok {
			entry.Debug("No save entry")
			continue
		}

		found = true
		if err := p.Deserialize(data); err != nil {
			entry.WithError(err).Warn("Corrupt save entry, keeping current state")
			continue
		}
	}

	if !found && len(errs) > 0 {
		return false, errors.Join(errs...)
	}
	if found {
		m.logger.Info("Game loaded")
	}
	return found, nil
}

// Exists reports whether the slot holds any registered entry
func (m *Manager) Exists(ctx context.Context) (bool, error) {
	for _, p := range m.registered() {
		_, ok, err := m.store.Get(ctx, m.slot, p.SaveID())
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
