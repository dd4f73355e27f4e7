package engine

import (
	"math/rand/v2"
	"testing"
)

// Legend used by the test maps:
//
//	~ deep water (default tile, ship only)
//	. grass (foot, horse)
//	, shallow water (raft)
//	^ mountain (nothing)
//	X a color missing from the catalog
var testLegend = map[string]string{
	"~": "0000ff",
	".": "00ff00",
	",": "00ffff",
	"^": "808080",
	"X": "ff00ff",
}

var testTiles = []TileDefinition{
	{Index: "0000ff", Name: "deep_water", Default: true, Properties: TileProperties{PassibleOnShip: true}},
	{Index: "00ff00", Name: "grass", Properties: TileProperties{PassibleOnFoot: true, PassibleOnHorse: true}},
	{Index: "00ffff", Name: "shallow_water", Properties: TileProperties{PassibleOnRaft: true}},
	{Index: "808080", Name: "mountain"},
}

func newTestWorld(t *testing.T, layout ...string) *WorldMap {
	t.Helper()
	catalog, err := NewTileCatalog(testTiles)
	if err != nil {
		t.Fatalf("Failed to create tile catalog: %v", err)
	}
	img, err := LayoutImage(layout, testLegend)
	if err != nil {
		t.Fatalf("Failed to build layout image: %v", err)
	}
	return NewWorldMap(img, catalog)
}

func newTestPlayer(t *testing.T, pos MapCoordinate) *Player {
	t.Helper()
	p, err := NewPlayer(Character{
		Name:         "Arthur",
		Sex:          Male,
		Strength:     15,
		Agility:      10,
		Intelligence: 10,
		Luck:         10,
	}, pos)
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	return p
}

func newTestVehicle(t *testing.T, id string, vt VehicleType, pos MapCoordinate) *Vehicle {
	t.Helper()
	v, err := NewVehicle(id, vt, pos, East)
	if err != nil {
		t.Fatalf("Failed to create vehicle: %v", err)
	}
	return v
}

func newThief(id string, pos MapCoordinate) *Monster {
	return NewMonster(ThiefTemplate, id, pos, South)
}

func testUnits(t *testing.T) *UnitCatalog {
	t.Helper()
	var units []Unit
	for _, name := range RequiredUnits(DefaultBestiary()) {
		units = append(units, Unit{Name: name, Icons: map[Direction]string{
			North: name + "_north",
			South: name + "_south",
			East:  name + "_east",
			West:  name + "_west",
		}})
	}
	c, err := NewUnitCatalog(units)
	if err != nil {
		t.Fatalf("Failed to create unit catalog: %v", err)
	}
	return c
}

type testGame struct {
	*Game
	player  *Player
	overlay *MapOverlay
}

func newTestGame(t *testing.T, layout []string, start MapCoordinate, entities ...MapEntity) *testGame {
	t.Helper()
	world := newTestWorld(t, layout...)
	player := newTestPlayer(t, start)
	overlay := NewMapOverlay("test", nil, entities...)
	g, err := NewGame(Options{
		World:   world,
		Overlay: overlay,
		Player:  player,
		Units:   testUnits(t),
		Rand:    rand.New(rand.NewPCG(1, 2)),
	})
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return &testGame{Game: g, player: player, overlay: overlay}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
