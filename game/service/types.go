package service

import (
	"time"

	"github.com/wricardo/klassik/game/engine"
)

// CreateSessionRequest starts a new game
type CreateSessionRequest struct {
	MapID     string           `json:"map_id,omitempty"`
	Character engine.Character `json:"character"`

	// LoadSlot continues a saved game; the session then saves into that slot
	LoadSlot string `json:"load_slot,omitempty"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	MapID          string            `json:"map_id"`
	Slot           string            `json:"slot"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Turn           int               `json:"turn"`
	Phase          engine.Phase      `json:"phase"`
	Player         engine.PlayerView `json:"player"`
	Log            []string          `json:"log,omitempty"`
}

// KeyResponse is the outcome of a key press with the resulting view
type KeyResponse struct {
	Result   engine.KeyResult `json:"result"`
	Snapshot *engine.Snapshot `json:"snapshot"`
}

// BulkKeyResponse summarizes a sequence of key presses
type BulkKeyResponse struct {
	RequestedKeys int                `json:"requested_keys"`
	KeysProcessed int                `json:"keys_processed"`
	Truncated     bool               `json:"truncated,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	StoppedReason string             `json:"stopped_reason,omitempty"`
	Results       []engine.KeyResult `json:"results"`
	Lines         []string           `json:"lines"`

	StartPos engine.MapCoordinate `json:"start_pos"`
	EndPos   engine.MapCoordinate `json:"end_pos"`
	StartHP  int                  `json:"start_hp"`
	EndHP    int                  `json:"end_hp"`
	XPDelta  int                  `json:"xp_delta"`

	Snapshot *engine.Snapshot `json:"snapshot"`
}

// LogResponse is the tail of a session's action log
type LogResponse struct {
	Lines []string `json:"lines"`
	Total int      `json:"total"`
}
