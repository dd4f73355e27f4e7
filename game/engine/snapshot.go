package engine

import (
	"strings"
)

// Snapshot is everything a front end needs to draw the current state
type Snapshot struct {
	Map         string        `json:"map"`
	Turn        int           `json:"turn"`
	Phase       Phase         `json:"phase"`
	Debug       bool          `json:"debug"`
	Player      PlayerView    `json:"player"`
	TopLeft     MapCoordinate `json:"top_left"`
	BottomRight MapCoordinate `json:"bottom_right"`
	Tiles       [][]TileView  `json:"tiles"`
	Entities    []EntityView  `json:"entities"`
	Log         []string      `json:"log"`
}

// PlayerView is the player plus derived display values
type PlayerView struct {
	Player
	MaxHP      int    `json:"maxHp"`
	CanLevelUp bool   `json:"canLevelUp"`
	Unit       string `json:"unit"`
	Icon       string `json:"icon"`
}

// TileView is one cell of the viewport grid
type TileView struct {
	Name    string         `json:"name"`
	Unknown bool           `json:"unknown,omitempty"`
	Coord   *MapCoordinate `json:"coord,omitempty"`
}

// EntityView is a live entity inside the viewport
type EntityView struct {
	ID          string        `json:"id"`
	Type        EntityType    `json:"type"`
	Position    MapCoordinate `json:"position"`
	Direction   Direction     `json:"direction"`
	Unit        string        `json:"unit"`
	Icon        string        `json:"icon"`
	VehicleType VehicleType   `json:"vehicleType,omitempty"`
	MonsterType string        `json:"monsterType,omitempty"`
	HP          int           `json:"hp,omitempty"`
	MaxHP       int           `json:"maxHp,omitempty"`
	Mood        Mood          `json:"mood,omitempty"`
}

// Snapshot captures the current view
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	topLeft, bottomRight := g.viewportLocked()

	s := Snapshot{
		Map:         g.overlay.MapName(),
		Turn:        g.turn,
		Phase:       g.phase,
		Debug:       g.debug,
		TopLeft:     topLeft,
		BottomRight: bottomRight,
		Log:         g.log.Lines(),
	}

	unitName := VehicleUnitName(g.player.Vehicle, true)
	s.Player = PlayerView{
		Player:     *g.player,
		MaxHP:      g.player.MaxHP(),
		CanLevelUp: g.player.CanLevelUp(),
		Unit:       unitName,
		Icon:       unitName,
	}
	if g.units != nil {
		if u, ok := g.units.Lookup(unitName); ok {
			s.Player.Icon = u.Icon(g.player.LastMoveDirection)
		} else {
			g.logger.WithField("unit", unitName).Error("Player unit is not defined")
		}
	}

	s.Tiles = make([][]TileView, 0, g.viewH)
	for y := topLeft.Y; y <= bottomRight.Y; y++ {
		row := make([]TileView, 0, g.viewW)
		for x := topLeft.X; x <= bottomRight.X; x++ {
			c := Coord(x, y)
			tile, known := g.world.TileAt(c)
			tv := TileView{Name: tile.Name, Unknown: !known}
			if g.debug {
				tv.Coord = &c
			}
			row = append(row, tv)
		}
		s.Tiles = append(s.Tiles, row)
	}

	for _, e := range g.overlay.EntitiesInRect(topLeft, bottomRight) {
		s.Entities = append(s.Entities, g.entityView(e))
	}
	return s
}

func (g *Game) entityView(e MapEntity) EntityView {
	b := e.Base()
	ev := EntityView{
		ID:        b.ID,
		Type:      e.Kind(),
		Position:  b.Position,
		Direction: b.Direction,
	}

	switch v := e.(type) {
	case *Vehicle:
		ev.VehicleType = v.VehicleType
		ev.Unit = VehicleUnitName(v.VehicleType, false)
	case *Monster:
		ev.MonsterType = v.MonsterType
		ev.HP = v.HP
		ev.MaxHP = v.MaxHP
		ev.Mood = v.Mood
		ev.Unit = v.Unit
	}

	ev.Icon = ev.Unit
	if g.units != nil {
		if u, ok := g.units.EntityUnit(e); ok {
			ev.Icon = u.Icon(b.Direction)
		}
	}
	return ev
}

// Text renders the viewport as a character grid: '@' is the player,
// vehicles use the first letter of their type in upper case, monsters are
// 'M' and tiles use the lower case first letter of their name.
func (s Snapshot) Text() string {
	var sb strings.Builder
	entities := make(map[MapCoordinate]EntityView, len(s.Entities))
	for _, e := range s.Entities {
		entities[e.Position] = e
	}

	for y, row := range s.Tiles {
		for x, t := range row {
			c := Coord(s.TopLeft.X+x, s.TopLeft.Y+y)
			switch e, ok := entities[c]; {
			case c.Equals(s.Player.Position):
				sb.WriteByte('@')
			case ok && e.Type == EntityVehicle:
				sb.WriteString(strings.ToUpper(initial(string(e.VehicleType))))
			case ok && e.Type == EntityMonster:
				sb.WriteByte('M')
			case t.Unknown:
				sb.WriteByte('?')
			default:
				sb.WriteString(strings.ToLower(initial(t.Name)))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func initial(name string) string {
	if name == "" {
		return "."
	}
	return name[:1]
}
