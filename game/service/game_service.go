package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/save"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// MaxBulkKeys caps the number of keys accepted by PressKeys
const MaxBulkKeys = 50

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	PressKey(ctx context.Context, sessionID, key string) (*KeyResponse, error)
	PressKeys(ctx context.Context, sessionID string, keys []string) (*BulkKeyResponse, error)
	Save(ctx context.Context, sessionID string) (*KeyResponse, error)
	Load(ctx context.Context, sessionID string) (*KeyResponse, error)

	// Game State
	GetView(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetLog(ctx context.Context, sessionID string, limit int) (*LogResponse, error)
	Subscribe(ctx context.Context, sessionID string, fn engine.Observer) (func(), error)

	// Saves and maps
	ListSaves(ctx context.Context) ([]string, error)
	ListMaps(ctx context.Context) ([]*config.MapInfo, error)
}

// SessionSpec describes a session to create
type SessionSpec struct {
	ID        string // generated when empty
	Slot      string // save slot, defaults to the session ID
	World     *config.World
	Character engine.Character
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(spec SessionSpec) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Slots(ctx context.Context) ([]string, error)
}

// ConfigManager gives access to the world content
type ConfigManager interface {
	LoadWorld(id string) (*config.World, error)
	ListMaps() ([]*config.MapInfo, error)
	DefaultMapID() string
}

// Session represents an active game session
type Session struct {
	ID        string
	MapID     string
	Game      *engine.Game
	Saves     *save.Manager
	CreatedAt time.Time

	mu             sync.Mutex
	lastAccessedAt time.Time
}

// NewSession wraps a running game
func NewSession(id, mapID string, game *engine.Game, saves *save.Manager) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		MapID:          mapID,
		Game:           game,
		Saves:          saves,
		CreatedAt:      now,
		lastAccessedAt: now,
	}
}

// Touch records an access
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = time.Now()
}

// LastAccessedAt returns the time of the last access
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}
