package main

import (
	"os"
	"testing"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
)

func testTiles(t *testing.T) *engine.TileCatalog {
	t.Helper()
	tiles, err := engine.NewTileCatalog([]engine.TileDefinition{
		{Index: "0000ff", Name: "deep_water", Default: true, Properties: engine.TileProperties{PassibleOnShip: true}},
		{Index: "00ff00", Name: "grass", Properties: engine.TileProperties{PassibleOnFoot: true, PassibleOnHorse: true}},
	})
	if err != nil {
		t.Fatalf("Failed to build tiles: %v", err)
	}
	return tiles
}

func testWorld(t *testing.T) *config.World {
	t.Helper()
	world, err := config.NewWorld("test", config.MapDefinition{
		Name: "Test",
		Layout: []string{
			"~~~~~~~~",
			"~......~",
			"~......~",
			"~~~~~~~?",
		},
		Legend:      map[string]string{"~": "0000ff", ".": "00ff00", "?": "123456"},
		PlayerStart: engine.Coord(1, 1),
		ViewWidth:   4,
		ViewHeight:  4,
		Entities: []engine.EntityDefinition{
			{Type: engine.EntityVehicle, ID: "horse_1", VehicleType: engine.VehicleHorse, Position: engine.Coord(2, 2), Direction: engine.East},
			{Type: engine.EntityVehicle, ID: "ship_1", VehicleType: engine.VehicleShip, Position: engine.Coord(0, 1), Direction: engine.West},
			{Type: engine.EntityMonster, ID: "near", MonsterType: "thief", Position: engine.Coord(2, 1), Direction: engine.West},
			{Type: engine.EntityMonster, ID: "far", MonsterType: "thief", Position: engine.Coord(6, 2), Direction: engine.West, Mood: engine.Frightened},
			{Type: engine.EntityMonster, ID: "guard", MonsterType: "thief", Position: engine.Coord(5, 1), Direction: engine.West, Sentinel: true, Mood: engine.Neutral},
		},
	}, testTiles(t), nil)
	if err != nil {
		t.Fatalf("Failed to build world: %v", err)
	}
	return world
}

func TestAnalyzeWorld(t *testing.T) {
	a, err := analyzeWorld(testWorld(t))
	if err != nil {
		t.Fatalf("analyzeWorld failed: %v", err)
	}

	if a.Width != 8 || a.Height != 4 {
		t.Errorf("Expected 8x4, got %dx%d", a.Width, a.Height)
	}
	if a.Unknown != 1 {
		t.Errorf("Expected 1 unknown tile, got %d", a.Unknown)
	}
	if len(a.Terrain) != 2 || a.Terrain[0].Name != "deep_water" || a.Terrain[0].Count != 19 {
		t.Errorf("Expected deep_water first with 19 tiles, got %+v", a.Terrain)
	}
	if a.Terrain[1].Name != "grass" || a.Terrain[1].Count != 12 {
		t.Errorf("Expected 12 grass tiles, got %+v", a.Terrain[1])
	}

	if a.Vehicles[engine.VehicleHorse] != 1 || a.Vehicles[engine.VehicleShip] != 1 {
		t.Errorf("Expected one horse and one ship, got %v", a.Vehicles)
	}
	if a.Moods[engine.Aggressive] != 1 || a.Moods[engine.Frightened] != 1 || a.Moods[engine.Neutral] != 1 {
		t.Errorf("Expected one monster per mood, got %v", a.Moods)
	}
	if a.Sentinels != 1 {
		t.Errorf("Expected 1 sentinel, got %d", a.Sentinels)
	}

	if a.Nearest != "near" || a.NearestDist != 1 {
		t.Errorf("Expected nearest monster 'near' at 1, got %s at %d", a.Nearest, a.NearestDist)
	}
	// view 4x4 around (1,1) spans (-1,-1)-(2,2)
	if len(a.FirstView) != 1 || a.FirstView[0] != "near" {
		t.Errorf("Expected only 'near' in the first view, got %v", a.FirstView)
	}
}

func TestAnalyzeWorld_DefaultView(t *testing.T) {
	world := testWorld(t)
	world.Definition.ViewWidth = 0
	world.Definition.ViewHeight = 0

	a, err := analyzeWorld(world)
	if err != nil {
		t.Fatalf("analyzeWorld failed: %v", err)
	}
	if a.ViewWidth != engine.DefaultViewWidth || a.ViewHeight != engine.DefaultViewHeight {
		t.Errorf("Expected default view %dx%d, got %dx%d",
			engine.DefaultViewWidth, engine.DefaultViewHeight, a.ViewWidth, a.ViewHeight)
	}
	if len(a.FirstView) != 3 {
		t.Errorf("Expected all 3 monsters in the default view, got %v", a.FirstView)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		n, total int
		expected float64
	}{
		{1, 4, 25},
		{0, 10, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := percent(tt.n, tt.total); got != tt.expected {
			t.Errorf("percent(%d, %d): expected %v, got %v", tt.n, tt.total, tt.expected, got)
		}
	}
}

func TestAnalyzeShippedMaps(t *testing.T) {
	configDir := "../../configs"
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Skip("Configs directory not found, skipping test")
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}
	world, err := manager.LoadWorld("training")
	if err != nil {
		t.Fatalf("Failed to load training map: %v", err)
	}

	a, err := analyzeWorld(world)
	if err != nil {
		t.Fatalf("analyzeWorld failed: %v", err)
	}
	if a.Unknown != 0 {
		t.Errorf("Expected no unknown tiles, got %d", a.Unknown)
	}
	if a.Sentinels != 1 {
		t.Errorf("Expected the guard to be a sentinel, got %d sentinels", a.Sentinels)
	}
}
