package engine

// Resolver decides whether a coordinate can be entered. It reads the world
// bitmap through the tile catalog and the overlay for occupancy.
type Resolver struct {
	world   *WorldMap
	overlay *MapOverlay
}

// NewResolver creates a resolver over a world map and its overlay
func NewResolver(world *WorldMap, overlay *MapOverlay) *Resolver {
	return &Resolver{world: world, overlay: overlay}
}

// CanPass checks if the player, riding vehicle, may move onto target
func (r *Resolver) CanPass(target MapCoordinate, vehicle VehicleType) bool {
	tile, known := r.world.TileAt(target)
	if !known {
		return false
	}

	occupant := r.overlay.EntityAt(target)
	parkedVehicle := false
	switch occupant.(type) {
	case *Monster:
		return false
	case *Vehicle:
		parkedVehicle = true
	case nil:
	}

	props := tile.Properties
	switch vehicle {
	case VehicleNone:
		return props.PassibleOnFoot || parkedVehicle
	case VehicleHorse:
		return props.PassibleOnHorse
	case VehicleRaft:
		return props.PassibleOnRaft
	case VehicleShip:
		return props.PassibleOnShip
	}
	return true
}

// CanMonsterEnter checks if a monster may step onto target: a known,
// foot-passable tile with no live entity and not the player's square
func (r *Resolver) CanMonsterEnter(target, player MapCoordinate) bool {
	if target.Equals(player) {
		return false
	}
	tile, known := r.world.TileAt(target)
	if !known || !tile.Properties.PassibleOnFoot {
		return false
	}
	return r.overlay.EntityAt(target) == nil
}
