package engine

import "fmt"

// Direction is one of the four cardinal directions
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// ScanOrder is the fixed order used when evaluating neighbor tiles
var ScanOrder = []Direction{North, South, East, West}

// Valid reports whether d is one of the four cardinal directions
func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

// VehicleType identifies what the player is riding, or VehicleNone on foot
type VehicleType string

const (
	VehicleNone  VehicleType = "none"
	VehicleRaft  VehicleType = "raft"
	VehicleShip  VehicleType = "ship"
	VehicleHorse VehicleType = "horse"
)

// Valid reports whether v is a known vehicle type (including none)
func (v VehicleType) Valid() bool {
	switch v {
	case VehicleNone, VehicleRaft, VehicleShip, VehicleHorse:
		return true
	}
	return false
}

// Sex of the player character
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Mood drives the monster AI policy
type Mood string

const (
	Aggressive Mood = "aggressive"
	Neutral    Mood = "neutral"
	Frightened Mood = "frightened"
)

// Valid reports whether m is a known mood
func (m Mood) Valid() bool {
	switch m {
	case Aggressive, Neutral, Frightened:
		return true
	}
	return false
}

// Constants shared across the engine
const (
	MaxLogLines       = 100
	MaxSkillPoints    = 50
	DefaultViewWidth  = 14
	DefaultViewHeight = 10
)

// MapCoordinate is an integer position on the world map
type MapCoordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Coord is shorthand for building a MapCoordinate
func Coord(x, y int) MapCoordinate {
	return MapCoordinate{X: x, Y: y}
}

// Equals reports component-wise equality
func (c MapCoordinate) Equals(o MapCoordinate) bool {
	return c.X == o.X && c.Y == o.Y
}

// Step returns the neighboring coordinate in the given direction
func (c MapCoordinate) Step(dir Direction) MapCoordinate {
	switch dir {
	case North:
		c.Y--
	case South:
		c.Y++
	case West:
		c.X--
	case East:
		c.X++
	}
	return c
}

// Within reports whether c lies in the inclusive box [topLeft, bottomRight]
func (c MapCoordinate) Within(topLeft, bottomRight MapCoordinate) bool {
	return c.X >= topLeft.X && c.Y >= topLeft.Y && c.X <= bottomRight.X && c.Y <= bottomRight.Y
}

func (c MapCoordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// ManhattanDistance calculates the Manhattan distance between two coordinates
func ManhattanDistance(from, to MapCoordinate) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
