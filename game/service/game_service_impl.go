package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/save"
	"github.com/wricardo/klassik/logger"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *logrus.Entry
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   logger.Component("service"),
	}
}

// CreateSession creates a new game session, optionally continuing a save
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	mapID := req.MapID
	if mapID == "" {
		mapID = s.configs.DefaultMapID()
	}

	world, err := s.configs.LoadWorld(mapID)
	if err != nil {
		if errors.Is(err, config.ErrMapNotFound) {
			return nil, fmt.Errorf("%w: map '%s' not found. Available maps: %v", ErrInvalidRequest, mapID, s.mapIDs())
		}
		return nil, fmt.Errorf("failed to load map %s: %w", mapID, err)
	}

	if err := req.Character.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	sess, err := s.sessions.Create(SessionSpec{
		Slot:      req.LoadSlot,
		World:     world,
		Character: req.Character,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if req.LoadSlot != "" {
		found, err := sess.Saves.Exists(ctx)
		if err != nil || !found {
			if delErr := s.sessions.Delete(sess.ID); delErr != nil {
				s.logger.WithError(delErr).WithField("session_id", sess.ID).Warn("Failed to drop session")
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read save slot %s: %w", req.LoadSlot, err)
			}
			return nil, fmt.Errorf("%w: save slot '%s' has no saved game", ErrInvalidRequest, req.LoadSlot)
		}
		res := sess.Game.HandleKey(ctx, engine.KeyLoad)
		s.logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"slot":       req.LoadSlot,
			"lines":      res.Lines,
		}).Info("Session created from save slot")
	} else {
		s.logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"map":        mapID,
		}).Info("Session created")
	}

	return s.sessionInfo(sess, true), nil
}

func (s *gameServiceImpl) mapIDs() []string {
	maps, err := s.configs.ListMaps()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(maps))
	for _, m := range maps {
		ids = append(ids, m.ID)
	}
	return ids
}

func (s *gameServiceImpl) sessionInfo(sess *Session, withLog bool) *SessionInfo {
	snap := sess.Game.Snapshot()
	info := &SessionInfo{
		ID:             sess.ID,
		MapID:          sess.MapID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		Turn:           snap.Turn,
		Phase:          snap.Phase,
		Player:         snap.Player,
	}
	if sess.Saves != nil {
		info.Slot = sess.Saves.Slot()
	}
	if withLog {
		info.Log = snap.Log
	}
	return info
}

// session looks up a session and records the access
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to update last access")
	}
	return sess, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, true), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, false))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// PressKey feeds one key to the session's game
func (s *gameServiceImpl) PressKey(ctx context.Context, sessionID, key string) (*KeyResponse, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res := sess.Game.HandleKey(ctx, key)
	snap := sess.Game.Snapshot()
	return &KeyResponse{Result: res, Snapshot: &snap}, nil
}

// PressKeys feeds a sequence of keys, stopping early when the player falls
// or input is refused
func (s *gameServiceImpl) PressKeys(ctx context.Context, sessionID string, keys []string) (*BulkKeyResponse, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one key is required", ErrInvalidRequest)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	start := sess.Game.Player()
	result := &BulkKeyResponse{
		RequestedKeys: len(keys),
		Results:       make([]engine.KeyResult, 0, len(keys)),
		Lines:         []string{},
		StartPos:      start.Position,
		StartHP:       start.HP,
	}

	if len(keys) > MaxBulkKeys {
		result.Truncated = true
		result.Limit = MaxBulkKeys
		keys = keys[:MaxBulkKeys]
	}

	// a bulk request waits for every monster phase, so skip the pacing
	keyCtx := engine.WithoutPacing(ctx)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			result.StoppedReason = "cancelled"
			break
		}
		res := sess.Game.HandleKey(keyCtx, key)
		result.Results = append(result.Results, res)
		result.Lines = append(result.Lines, res.Lines...)
		result.KeysProcessed++

		if res.Ignored {
			result.StoppedReason = "busy"
			break
		}
		if p := sess.Game.Player(); !p.Alive() {
			result.StoppedReason = "fallen"
			break
		}
	}

	end := sess.Game.Player()
	result.EndPos = end.Position
	result.EndHP = end.HP
	result.XPDelta = end.XP - start.XP
	snap := sess.Game.Snapshot()
	result.Snapshot = &snap
	return result, nil
}

// Save stores the session through its save slot, exactly like the save key
func (s *gameServiceImpl) Save(ctx context.Context, sessionID string) (*KeyResponse, error) {
	return s.PressKey(ctx, sessionID, engine.KeySave)
}

// Load restores the session from its save slot
func (s *gameServiceImpl) Load(ctx context.Context, sessionID string) (*KeyResponse, error) {
	return s.PressKey(ctx, sessionID, engine.KeyLoad)
}

// GetView returns the current snapshot
func (s *gameServiceImpl) GetView(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Game.Snapshot()
	return &snap, nil
}

// GetLog returns the last limit log lines, all of them when limit <= 0
func (s *gameServiceImpl) GetLog(ctx context.Context, sessionID string, limit int) (*LogResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	lines, total := sess.Game.LogTail(limit)
	return &LogResponse{Lines: lines, Total: total}, nil
}

// Subscribe forwards the session's engine events to fn
func (s *gameServiceImpl) Subscribe(ctx context.Context, sessionID string, fn engine.Observer) (func(), error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Game.Subscribe(fn), nil
}

// ListSaves returns the save slots that can be continued with load_slot
func (s *gameServiceImpl) ListSaves(ctx context.Context) ([]string, error) {
	slots, err := s.sessions.Slots(ctx)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// ListMaps returns the maps sessions can be started on
func (s *gameServiceImpl) ListMaps(ctx context.Context) ([]*config.MapInfo, error) {
	maps, err := s.configs.ListMaps()
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	return maps, nil
}

// IsNotFound reports whether err means the session does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsInvalid reports whether err was caused by bad input
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, save.ErrInvalidSlot)
}
