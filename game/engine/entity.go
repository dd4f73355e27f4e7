package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// EntityType is the discriminant of the MapEntity sum type
type EntityType string

const (
	EntityVehicle EntityType = "vehicle"
	EntityMonster EntityType = "monster"
)

var (
	ErrUnknownEntityType  = errors.New("unknown entity type")
	ErrUnknownMonsterType = errors.New("unknown monster type")
	ErrInvalidVehicleType = errors.New("invalid vehicle type")
)

// MapEntity is anything living on the map overlay. The set of
// implementations is closed: *Vehicle and *Monster.
type MapEntity interface {
	Kind() EntityType
	Base() *EntityBase
	isMapEntity()
}

// EntityBase holds the fields shared by every map entity
type EntityBase struct {
	ID        string        `json:"id"`
	Position  MapCoordinate `json:"position"`
	Direction Direction     `json:"direction"`
	Destroyed bool          `json:"destroyed,omitempty"`
}

// Vehicle is an unoccupied vehicle parked on the map
type Vehicle struct {
	EntityBase
	VehicleType VehicleType `json:"vehicleType"`
}

// NewVehicle creates a parked vehicle
func NewVehicle(id string, vehicleType VehicleType, position MapCoordinate, direction Direction) (*Vehicle, error) {
	if vehicleType == VehicleNone || !vehicleType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVehicleType, vehicleType)
	}
	if !direction.Valid() {
		direction = South
	}
	return &Vehicle{
		EntityBase: EntityBase{
			ID:        id,
			Position:  position,
			Direction: direction,
		},
		VehicleType: vehicleType,
	}, nil
}

func (v *Vehicle) Kind() EntityType  { return EntityVehicle }
func (v *Vehicle) Base() *EntityBase { return &v.EntityBase }
func (v *Vehicle) isMapEntity()      {}

// MarshalJSON adds the type discriminant
func (v *Vehicle) MarshalJSON() ([]byte, error) {
	type plain Vehicle
	return json.Marshal(struct {
		Type EntityType `json:"type"`
		*plain
	}{EntityVehicle, (*plain)(v)})
}

// MonsterTemplate describes the starting stats of a monster type
type MonsterTemplate struct {
	Type     string `json:"type"`
	HP       int    `json:"hp"`
	Strength int    `json:"strength"`
	Agility  int    `json:"agility"`
	XP       int    `json:"xp"`
	Mood     Mood   `json:"mood"`
	Unit     string `json:"unit"`
}

// Bestiary holds the monster templates known to a session
type Bestiary struct {
	templates map[string]MonsterTemplate
}

// ThiefTemplate is the built-in thief
var ThiefTemplate = MonsterTemplate{
	Type:     "thief",
	HP:       30,
	Strength: 12,
	Agility:  15,
	XP:       10,
	Mood:     Aggressive,
	Unit:     "thief",
}

// NewBestiary validates and indexes the templates
func NewBestiary(templates []MonsterTemplate) (*Bestiary, error) {
	b := &Bestiary{templates: make(map[string]MonsterTemplate, len(templates))}
	for _, t := range templates {
		if t.Type == "" {
			return nil, fmt.Errorf("monster template without type")
		}
		if t.HP <= 0 {
			return nil, fmt.Errorf("monster %q: hp must be positive, got %d", t.Type, t.HP)
		}
		if t.Mood == "" {
			t.Mood = Aggressive
		}
		if !t.Mood.Valid() {
			return nil, fmt.Errorf("monster %q: invalid mood %q", t.Type, t.Mood)
		}
		if t.Unit == "" {
			t.Unit = t.Type
		}
		b.templates[t.Type] = t
	}
	return b, nil
}

// DefaultBestiary contains only the thief
func DefaultBestiary() *Bestiary {
	b, _ := NewBestiary([]MonsterTemplate{ThiefTemplate})
	return b
}

// Template returns the template for a monster type
func (b *Bestiary) Template(monsterType string) (MonsterTemplate, bool) {
	t, ok := b.templates[monsterType]
	return t, ok
}

// Types returns the sorted monster type names
func (b *Bestiary) Types() []string {
	types := make([]string, 0, len(b.templates))
	for t := range b.templates {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Monster is a combat capable map entity
type Monster struct {
	EntityBase
	MonsterType string `json:"monsterType"`
	HP          int    `json:"hp"`
	MaxHP       int    `json:"maxHp"`
	Strength    int    `json:"strength"`
	Agility     int    `json:"agility"`
	Sentinel    bool   `json:"sentinel"`
	Mood        Mood   `json:"mood"`

	// XP is awarded to the player on defeat. It comes from the template.
	XP   int    `json:"-"`
	Unit string `json:"-"`
}

// NewMonster creates a monster at full health from its template
func NewMonster(t MonsterTemplate, id string, position MapCoordinate, direction Direction) *Monster {
	if !direction.Valid() {
		direction = South
	}
	return &Monster{
		EntityBase: EntityBase{
			ID:        id,
			Position:  position,
			Direction: direction,
		},
		MonsterType: t.Type,
		HP:          t.HP,
		MaxHP:       t.HP,
		Strength:    t.Strength,
		Agility:     t.Agility,
		Mood:        t.Mood,
		XP:          t.XP,
		Unit:        t.Unit,
	}
}

func (m *Monster) Kind() EntityType  { return EntityMonster }
func (m *Monster) Base() *EntityBase { return &m.EntityBase }
func (m *Monster) isMapEntity()      {}

// MarshalJSON adds the type discriminant
func (m *Monster) MarshalJSON() ([]byte, error) {
	type plain Monster
	return json.Marshal(struct {
		Type EntityType `json:"type"`
		*plain
	}{EntityMonster, (*plain)(m)})
}

// EntityDefinition is the plain data form of an entity, used both in map
// definitions and in saved overlays. Monster stats left nil keep the
// template values.
type EntityDefinition struct {
	Type        EntityType    `json:"type"`
	ID          string        `json:"id"`
	Position    MapCoordinate `json:"position"`
	Direction   Direction     `json:"direction"`
	Destroyed   bool          `json:"destroyed,omitempty"`
	VehicleType VehicleType   `json:"vehicleType,omitempty"`
	MonsterType string        `json:"monsterType,omitempty"`
	HP          *int          `json:"hp,omitempty"`
	MaxHP       *int          `json:"maxHp,omitempty"`
	Strength    *int          `json:"strength,omitempty"`
	Agility     *int          `json:"agility,omitempty"`
	Sentinel    bool          `json:"sentinel,omitempty"`
	Mood        Mood          `json:"mood,omitempty"`
}

// Hydrate turns a definition into a live entity through the regular
// constructors
func (d EntityDefinition) Hydrate(bestiary *Bestiary) (MapEntity, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("entity without id")
	}

	switch d.Type {
	case EntityVehicle:
		v, err := NewVehicle(d.ID, d.VehicleType, d.Position, d.Direction)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", d.ID, err)
		}
		v.Destroyed = d.Destroyed
		return v, nil

	case EntityMonster:
		t, ok := bestiary.Template(d.MonsterType)
		if !ok {
			return nil, fmt.Errorf("entity %s: %w: %q", d.ID, ErrUnknownMonsterType, d.MonsterType)
		}
		m := NewMonster(t, d.ID, d.Position, d.Direction)
		if d.HP != nil {
			m.HP = *d.HP
		}
		if d.MaxHP != nil {
			m.MaxHP = *d.MaxHP
		}
		if d.Strength != nil {
			m.Strength = *d.Strength
		}
		if d.Agility != nil {
			m.Agility = *d.Agility
		}
		if d.Mood != "" {
			if !d.Mood.Valid() {
				return nil, fmt.Errorf("entity %s: invalid mood %q", d.ID, d.Mood)
			}
			m.Mood = d.Mood
		}
		if m.MaxHP <= 0 {
			return nil, fmt.Errorf("entity %s: invalid max hp %d", d.ID, m.MaxHP)
		}
		m.Sentinel = d.Sentinel
		// a monster without hp is dead whatever the flag says
		m.Destroyed = d.Destroyed || m.HP <= 0
		return m, nil
	}

	return nil, fmt.Errorf("entity %s: %w: %q", d.ID, ErrUnknownEntityType, d.Type)
}
