package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/save"
	"github.com/wricardo/klassik/game/service"
	"github.com/wricardo/klassik/logger"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	units    *engine.UnitCatalog
	store    save.Store
	pacing   time.Duration
	mu       sync.RWMutex
	logger   *logrus.Entry
}

// NewManager creates a session manager. Sessions save into store, which
// defaults to an in-memory store when nil.
func NewManager(units *engine.UnitCatalog, store save.Store, pacing time.Duration) *Manager {
	if store == nil {
		store = save.NewMemoryStore()
	}
	return &Manager{
		sessions: make(map[string]*service.Session),
		units:    units,
		store:    store,
		pacing:   pacing,
		logger:   logger.Component("session"),
	}
}

// Create starts a new game on the requested world
func (m *Manager) Create(spec service.SessionSpec) (*service.Session, error) {
	if spec.World == nil {
		return nil, fmt.Errorf("world is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := spec.ID
	if id == "" {
		id = m.generateSessionID()
	} else if err := save.ValidateSlot(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	slot := spec.Slot
	if slot == "" {
		slot = id
	}
	saves, err := save.NewManager(m.store, slot)
	if err != nil {
		return nil, err
	}

	overlay, err := spec.World.NewOverlay()
	if err != nil {
		return nil, err
	}
	player, err := engine.NewPlayer(spec.Character, spec.World.Definition.PlayerStart)
	if err != nil {
		return nil, err
	}
	saves.Register(player, overlay)

	game, err := engine.NewGame(engine.Options{
		World:      spec.World.Map,
		Overlay:    overlay,
		Player:     player,
		Units:      m.units,
		ViewWidth:  spec.World.Definition.ViewWidth,
		ViewHeight: spec.World.Definition.ViewHeight,
		Pacing:     m.pacing,
		Persister:  saves,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	session := service.NewSession(id, spec.World.ID, game, saves)
	m.sessions[strings.ToLower(id)] = session

	m.logger.WithFields(logrus.Fields{
		"session_id": id,
		"map":        spec.World.ID,
		"slot":       slot,
	}).Debug("Session created")
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session. Its save slot is kept so the game can be
// continued later.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	session.Touch()
	return nil
}

// Slots lists the save slots held by the store
func (m *Manager) Slots(ctx context.Context) ([]string, error) {
	slots, err := m.store.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list save slots: %w", err)
	}
	return slots, nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.WithField("removed", removed).Info("Expired sessions removed")
	}
	return removed
}

// RunCleanup removes expired sessions every interval until ctx is done
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpiredSessions(maxAge)
		}
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID not yet in use.
// Callers hold m.mu.
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 2)
	for {
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
