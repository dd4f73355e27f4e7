package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PlayerSaveID is the persistence key of the player
const PlayerSaveID = "player"

var (
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidSex         = errors.New("sex must be male or female")
	ErrNegativeSkill      = errors.New("skill points cannot be negative")
	ErrTooManySkillPoints = errors.New("too many skill points")
)

// LevelInfo is one row of the level table
type LevelInfo struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
	MaxHP int `json:"maxHp"`
}

// LevelTable holds xp thresholds and hp caps. Index 0 is level 1.
var LevelTable = []LevelInfo{
	{Level: 1, XP: 0, MaxHP: 50},
	{Level: 2, XP: 20, MaxHP: 60},
	{Level: 3, XP: 50, MaxHP: 70},
	{Level: 4, XP: 100, MaxHP: 80},
	{Level: 5, XP: 200, MaxHP: 90},
	{Level: 6, XP: 400, MaxHP: 100},
	{Level: 7, XP: 800, MaxHP: 110},
	{Level: 8, XP: 1600, MaxHP: 120},
	{Level: 9, XP: 3200, MaxHP: 130},
	{Level: 10, XP: 6400, MaxHP: 140},
	{Level: 11, XP: 12800, MaxHP: 150},
}

// MaxLevel is the last row of LevelTable
var MaxLevel = len(LevelTable)

// Character holds the choices made at character creation
type Character struct {
	Name         string `json:"name"`
	Sex          Sex    `json:"sex"`
	Strength     int    `json:"strength"`
	Agility      int    `json:"agility"`
	Intelligence int    `json:"intelligence"`
	Luck         int    `json:"luck"`
}

// SkillPoints returns the total of the four skills
func (c Character) SkillPoints() int {
	return c.Strength + c.Agility + c.Intelligence + c.Luck
}

// Validate checks the character creation rules
func (c Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if c.Sex != Male && c.Sex != Female {
		return fmt.Errorf("%w, got %q", ErrInvalidSex, c.Sex)
	}
	if c.Strength < 0 || c.Agility < 0 || c.Intelligence < 0 || c.Luck < 0 {
		return ErrNegativeSkill
	}
	if used := c.SkillPoints(); used > MaxSkillPoints {
		return fmt.Errorf("%w: %d used, %d available", ErrTooManySkillPoints, used, MaxSkillPoints)
	}
	return nil
}

// Player is the session's single player character
type Player struct {
	Position          MapCoordinate `json:"position"`
	LastMoveDirection Direction     `json:"lastMoveDirection"`
	Vehicle           VehicleType   `json:"vehicle"`
	Name              string        `json:"name"`
	Sex               Sex           `json:"sex"`
	HP                int           `json:"hp"`
	XP                int           `json:"xp"`
	Level             int           `json:"level"`
	Strength          int           `json:"strength"`
	Agility           int           `json:"agility"`
	Intelligence      int           `json:"intelligence"`
	Luck              int           `json:"luck"`
}

// NewPlayer creates a level 1 player on foot at full health
func NewPlayer(c Character, start MapCoordinate) (*Player, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p := &Player{
		Position:          start,
		LastMoveDirection: South,
		Vehicle:           VehicleNone,
		Name:              strings.TrimSpace(c.Name),
		Sex:               c.Sex,
		Level:             1,
		Strength:          c.Strength,
		Agility:           c.Agility,
		Intelligence:      c.Intelligence,
		Luck:              c.Luck,
	}
	p.HP = p.MaxHP()
	return p, nil
}

func (p *Player) levelInfo() LevelInfo {
	idx := p.Level - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(LevelTable) {
		idx = len(LevelTable) - 1
	}
	return LevelTable[idx]
}

// MaxHP is the hp cap for the current level
func (p *Player) MaxHP() int {
	return p.levelInfo().MaxHP
}

// CanLevelUp reports whether the player has the xp for the next level
func (p *Player) CanLevelUp() bool {
	if p.Level < 1 || p.Level >= MaxLevel {
		return false
	}
	return p.XP >= LevelTable[p.Level].XP
}

// LevelUp advances one level and restores hp to the new cap
func (p *Player) LevelUp() bool {
	if !p.CanLevelUp() {
		return false
	}
	p.Level++
	p.HP = p.MaxHP()
	return true
}

func (p *Player) SaveID() string {
	return PlayerSaveID
}

func (p *Player) Serialize() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal player: %w", err)
	}
	return string(data), nil
}

// Deserialize replaces the player with the decoded value. On error the
// player is left unchanged.
func (p *Player) Deserialize(input string) error {
	next := *p
	if err := json.Unmarshal([]byte(input), &next); err != nil {
		return fmt.Errorf("failed to unmarshal player: %w", err)
	}
	if !next.Vehicle.Valid() {
		return fmt.Errorf("invalid player vehicle %q", next.Vehicle)
	}
	if !next.LastMoveDirection.Valid() {
		return fmt.Errorf("invalid player direction %q", next.LastMoveDirection)
	}
	if next.Level < 1 || next.Level > MaxLevel {
		return fmt.Errorf("invalid player level %d", next.Level)
	}
	if next.HP < 0 || next.XP < 0 {
		return fmt.Errorf("invalid player hp %d or xp %d", next.HP, next.XP)
	}
	if next.Strength < 0 || next.Agility < 0 || next.Intelligence < 0 || next.Luck < 0 {
		return fmt.Errorf("player stats: %w", ErrNegativeSkill)
	}
	*p = next
	return nil
}
