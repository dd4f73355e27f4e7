// Command analyze prints quick, human-readable heuristics about the maps in
// the project's configs directory. It summarizes dimensions, terrain shares,
// vehicles and monsters, and highlights monsters that start inside the
// player's first view and will act on the very first turn.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
)

// TerrainShare is the number of tiles of one terrain type
type TerrainShare struct {
	Name  string
	Count int
}

// Analysis holds the heuristics computed for one map
type Analysis struct {
	Name        string
	Width       int
	Height      int
	Start       engine.MapCoordinate
	ViewWidth   int
	ViewHeight  int
	Terrain     []TerrainShare
	Unknown     int
	Vehicles    map[engine.VehicleType]int
	Moods       map[engine.Mood]int
	Sentinels   int
	Nearest     string
	NearestDist int
	FirstView   []string
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		fmt.Printf("Error loading configs: %v\n", err)
		os.Exit(1)
	}

	maps, err := manager.ListMaps()
	if err != nil {
		fmt.Printf("Error listing maps: %v\n", err)
		os.Exit(1)
	}

	for _, info := range maps {
		fmt.Printf("\n=== Analyzing %s ===\n", info.ID)
		world, err := manager.LoadWorld(info.ID)
		if err != nil {
			fmt.Printf("Error loading map: %v\n", err)
			continue
		}
		a, err := analyzeWorld(world)
		if err != nil {
			fmt.Printf("Error analyzing map: %v\n", err)
			continue
		}
		printAnalysis(a)
	}
}

func analyzeWorld(world *config.World) (*Analysis, error) {
	overlay, err := world.NewOverlay()
	if err != nil {
		return nil, err
	}

	def := world.Definition
	a := &Analysis{
		Name:        def.Name,
		Start:       def.PlayerStart,
		ViewWidth:   def.ViewWidth,
		ViewHeight:  def.ViewHeight,
		Vehicles:    map[engine.VehicleType]int{},
		Moods:       map[engine.Mood]int{},
		NearestDist: -1,
	}
	if a.ViewWidth <= 0 {
		a.ViewWidth = engine.DefaultViewWidth
	}
	if a.ViewHeight <= 0 {
		a.ViewHeight = engine.DefaultViewHeight
	}
	a.Width, a.Height = world.Map.Bounds()

	counts := map[string]int{}
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			tile, known := world.Map.TileAt(engine.Coord(x, y))
			if !known {
				a.Unknown++
				continue
			}
			counts[tile.Name]++
		}
	}
	for name, n := range counts {
		a.Terrain = append(a.Terrain, TerrainShare{Name: name, Count: n})
	}
	sort.Slice(a.Terrain, func(i, j int) bool {
		if a.Terrain[i].Count != a.Terrain[j].Count {
			return a.Terrain[i].Count > a.Terrain[j].Count
		}
		return a.Terrain[i].Name < a.Terrain[j].Name
	})

	// same box the engine uses for the opening view
	topLeft := engine.Coord(a.Start.X-a.ViewWidth/2, a.Start.Y-a.ViewHeight/2)
	bottomRight := engine.Coord(topLeft.X+a.ViewWidth-1, topLeft.Y+a.ViewHeight-1)

	for _, e := range overlay.Entities() {
		switch ent := e.(type) {
		case *engine.Vehicle:
			a.Vehicles[ent.VehicleType]++
		case *engine.Monster:
			if !ent.Alive() {
				continue
			}
			a.Moods[ent.Mood]++
			if ent.Sentinel {
				a.Sentinels++
			}
			dist := engine.ManhattanDistance(a.Start, ent.Position)
			if a.NearestDist < 0 || dist < a.NearestDist {
				a.NearestDist = dist
				a.Nearest = ent.ID
			}
			if ent.Position.Within(topLeft, bottomRight) {
				a.FirstView = append(a.FirstView, ent.ID)
			}
		}
	}
	sort.Strings(a.FirstView)

	return a, nil
}

func printAnalysis(a *Analysis) {
	total := a.Width * a.Height

	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Map Size: %d x %d\n", a.Width, a.Height)
	fmt.Printf("Start: %s, View: %d x %d\n", a.Start, a.ViewWidth, a.ViewHeight)

	fmt.Println("Terrain:")
	for _, t := range a.Terrain {
		fmt.Printf("   %-14s %6d (%5.1f%%)\n", t.Name, t.Count, percent(t.Count, total))
	}
	if a.Unknown > 0 {
		fmt.Printf("⚠️  WARNING: %d tiles (%.1f%%) have colors missing from the catalog\n", a.Unknown, percent(a.Unknown, total))
	}

	fmt.Printf("Vehicles: horse %d, raft %d, ship %d\n",
		a.Vehicles[engine.VehicleHorse], a.Vehicles[engine.VehicleRaft], a.Vehicles[engine.VehicleShip])
	fmt.Printf("Monsters: aggressive %d, neutral %d, frightened %d (sentinels %d)\n",
		a.Moods[engine.Aggressive], a.Moods[engine.Neutral], a.Moods[engine.Frightened], a.Sentinels)

	if a.NearestDist >= 0 {
		fmt.Printf("Nearest monster: %s at distance %d\n", a.Nearest, a.NearestDist)
	}
	if len(a.FirstView) > 0 {
		fmt.Printf("⚠️  %d monsters act on the first turn: %v\n", len(a.FirstView), a.FirstView)
	} else {
		fmt.Printf("✅ No monsters in the opening view\n")
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
