// Command validate checks the world content in the ../configs directory
// (or the directory given as the first argument). It checks:
//   - the catalog loads: default tile, unique tile indexes, required units
//   - every map under maps/ loads: layout or bitmap, legend, entities
//   - every vehicle can be reached on foot from the player start
//   - every roaming monster stands on foot-passable terrain with room to move
//   - the share of pixels whose color is not in the tile catalog
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
)

// maxUnknownShare is the share of unknown pixels above which a map is invalid
const maxUnknownShare = 0.01

// ValidationResult captures the outcome of validating a single map.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "⚠ "+fmt.Sprintf(format, args...))
}

// validateMap loads one map through the config manager and runs the
// reachability and terrain checks the loader does not do.
func validateMap(manager *config.Manager, id string) ValidationResult {
	result := ValidationResult{
		File:   id + ".json",
		Valid:  true,
		Errors: []string{},
	}

	world, err := manager.LoadWorld(id)
	if err != nil {
		result.fail("Failed to load: %v", err)
		return result
	}

	overlay, err := world.NewOverlay()
	if err != nil {
		result.fail("Invalid entities: %v", err)
		return result
	}

	width, height := world.Map.Bounds()
	unknown := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if _, known := world.Map.TileAt(engine.Coord(x, y)); !known {
				unknown++
			}
		}
	}
	if share := float64(unknown) / float64(width*height); share > maxUnknownShare {
		result.fail("Unknown terrain: %d pixels (%.1f%%) have colors missing from the catalog", unknown, share*100)
	} else if unknown > 0 {
		result.warn("Unknown terrain: %d pixels", unknown)
	}

	reachable := reachableOnFoot(world.Map, overlay, world.Definition.PlayerStart)

	vehicles, monsters := 0, 0
	for _, e := range overlay.Entities() {
		base := e.Base()
		switch ent := e.(type) {
		case *engine.Vehicle:
			vehicles++
			if !reachable[base.Position] {
				result.fail("Unreachable: %s %s at %s cannot be reached on foot from the start", ent.VehicleType, base.ID, base.Position)
			}
		case *engine.Monster:
			monsters++
			if ent.Sentinel {
				continue
			}
			tile, _ := world.Map.TileAt(base.Position)
			if !tile.Properties.PassibleOnFoot {
				result.fail("Stranded: monster %s at %s stands on %s", base.ID, base.Position, tile.Name)
				continue
			}
			if !hasRoom(world.Map, overlay, base.Position) {
				result.warn("Boxed in: monster %s at %s has no free neighbor", base.ID, base.Position)
			}
		}
	}

	if result.Valid {
		result.info("Name: %s", world.Definition.Name)
		result.info("Map: %dx%d", width, height)
		result.info("Start: %s", world.Definition.PlayerStart)
		result.info("Walkable from start: %d tiles", len(reachable))
		result.info("Vehicles: %d", vehicles)
		result.info("Monsters: %d", monsters)
	}

	return result
}

// reachableOnFoot flood fills from start over foot-passable tiles. Parked
// vehicles are enterable on foot so boarding is possible; their tile does
// not extend the fill unless it is walkable itself. Monsters are ignored as
// they move.
func reachableOnFoot(world *engine.WorldMap, overlay *engine.MapOverlay, start engine.MapCoordinate) map[engine.MapCoordinate]bool {
	visited := map[engine.MapCoordinate]bool{start: true}
	queue := []engine.MapCoordinate{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range engine.ScanOrder {
			next := current.Step(dir)
			if visited[next] {
				continue
			}
			tile, known := world.TileAt(next)
			if !known {
				continue
			}
			if tile.Properties.PassibleOnFoot {
				visited[next] = true
				queue = append(queue, next)
				continue
			}
			if _, parked := overlay.EntityAt(next).(*engine.Vehicle); parked {
				visited[next] = true
			}
		}
	}

	return visited
}

// hasRoom reports whether a monster at pos has at least one free walkable neighbor
func hasRoom(world *engine.WorldMap, overlay *engine.MapOverlay, pos engine.MapCoordinate) bool {
	for _, dir := range engine.ScanOrder {
		next := pos.Step(dir)
		tile, known := world.TileAt(next)
		if known && tile.Properties.PassibleOnFoot && overlay.EntityAt(next) == nil {
			return true
		}
	}
	return false
}

// mapIDs lists the map definitions in the config directory
func mapIDs(configDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(configDir, "maps", "*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(filepath.Base(f), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// main validates every map in the config directory, printing a concise
// report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		fmt.Printf("❌ Catalog: %v\n", err)
		os.Exit(1)
	}

	ids, err := mapIDs(configDir)
	if err != nil {
		fmt.Printf("Error finding map files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, id := range ids {
		result := validateMap(manager, id)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All maps are valid!")
	} else {
		fmt.Println("❌ Some maps have errors")
		os.Exit(1)
	}
}
