package engine

import (
	"errors"
	"fmt"
)

// ErrMissingUnit signals a unit catalog lacking a required unit
var ErrMissingUnit = errors.New("missing unit definition")

// Unit is a sprite set with one icon prefix per facing direction
type Unit struct {
	Name  string               `json:"name"`
	Icons map[Direction]string `json:"icons"`
}

// Icon returns the icon prefix for a facing, falling back to the unit name
func (u Unit) Icon(dir Direction) string {
	if prefix, ok := u.Icons[dir]; ok && prefix != "" {
		return prefix
	}
	return u.Name
}

// UnitCatalog maps unit names to units
type UnitCatalog struct {
	units map[string]Unit
}

// NewUnitCatalog indexes the units by name
func NewUnitCatalog(units []Unit) (*UnitCatalog, error) {
	c := &UnitCatalog{units: make(map[string]Unit, len(units))}
	for _, u := range units {
		if u.Name == "" {
			return nil, fmt.Errorf("unit without name")
		}
		if _, dup := c.units[u.Name]; dup {
			return nil, fmt.Errorf("duplicate unit %q", u.Name)
		}
		c.units[u.Name] = u
	}
	return c, nil
}

// Lookup returns a unit by name
func (c *UnitCatalog) Lookup(name string) (Unit, bool) {
	u, ok := c.units[name]
	return u, ok
}

// VehicleUnitName names the unit used to draw a vehicle, either ridden by
// the player or parked. VehicleNone maps to the knight.
func VehicleUnitName(vehicle VehicleType, inUse bool) string {
	switch vehicle {
	case VehicleNone:
		return "knight"
	case VehicleRaft, VehicleShip, VehicleHorse:
		if inUse {
			return "full_" + string(vehicle)
		}
		return "empty_" + string(vehicle)
	}
	return ""
}

// RequiredUnits lists the units every catalog must define for the given
// bestiary
func RequiredUnits(bestiary *Bestiary) []string {
	names := []string{VehicleUnitName(VehicleNone, true)}
	for _, v := range []VehicleType{VehicleRaft, VehicleShip, VehicleHorse} {
		names = append(names, VehicleUnitName(v, true), VehicleUnitName(v, false))
	}
	if bestiary != nil {
		for _, t := range bestiary.Types() {
			tmpl, _ := bestiary.Template(t)
			names = append(names, tmpl.Unit)
		}
	}
	return names
}

// Require fails when any of the named units is missing
func (c *UnitCatalog) Require(names ...string) error {
	for _, n := range names {
		if _, ok := c.units[n]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingUnit, n)
		}
	}
	return nil
}

// EntityUnit resolves the unit drawn for a map entity
func (c *UnitCatalog) EntityUnit(e MapEntity) (Unit, bool) {
	switch v := e.(type) {
	case *Vehicle:
		return c.Lookup(VehicleUnitName(v.VehicleType, false))
	case *Monster:
		return c.Lookup(v.Unit)
	}
	return Unit{}, false
}
