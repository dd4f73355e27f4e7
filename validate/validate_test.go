package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/klassik/game/config"
)

const testCatalog = `{
  "tiles": [
    {"index": "0000ff", "name": "deep_water", "default": true, "properties": {"passible_on_ship": true}},
    {"index": "00ff00", "name": "grass", "properties": {"passible_on_foot": true, "passible_on_horse": true}},
    {"index": "00ffff", "name": "shallow_water", "properties": {"passible_on_raft": true}},
    {"index": "808080", "name": "mountains"}
  ],
  "units": [
    {"name": "knight"},
    {"name": "full_raft"}, {"name": "empty_raft"},
    {"name": "full_ship"}, {"name": "empty_ship"},
    {"name": "full_horse"}, {"name": "empty_horse"},
    {"name": "thief"}
  ],
  "monsters": [
    {"type": "thief", "hp": 30, "strength": 12, "agility": 15, "xp": 10, "mood": "aggressive", "unit": "thief"}
  ]
}`

const validMap = `{
  "name": "Test Isle",
  "description": "A small island",
  "layout": [
    "~~~~~~",
    "~....~",
    "~.,..~",
    "~~~~~~"
  ],
  "legend": {"~": "0000ff", ".": "00ff00", ",": "00ffff"},
  "player_start": {"x": 1, "y": 1},
  "entities": [
    {"type": "vehicle", "id": "ship_1", "vehicleType": "ship", "position": {"x": 5, "y": 1}, "direction": "west"},
    {"type": "vehicle", "id": "raft_1", "vehicleType": "raft", "position": {"x": 2, "y": 2}, "direction": "north"},
    {"type": "monster", "id": "thief_1", "monsterType": "thief", "position": {"x": 4, "y": 2}, "direction": "west"}
  ]
}`

func createConfigDir(t *testing.T, maps map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "maps"), 0755); err != nil {
		t.Fatalf("Failed to create maps dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "catalog.json"), []byte(testCatalog), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	for name, content := range maps {
		if err := os.WriteFile(filepath.Join(dir, "maps", name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write map %s: %v", name, err)
		}
	}
	return dir
}

func newManager(t *testing.T, dir string) *config.Manager {
	t.Helper()
	m, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func containsPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func TestValidateMap_Valid(t *testing.T) {
	dir := createConfigDir(t, map[string]string{"isle.json": validMap})
	result := validateMap(newManager(t, dir), "isle")

	if !result.Valid {
		t.Fatalf("Expected valid map, but got errors: %v", result.Errors)
	}
	if result.File != "isle.json" {
		t.Errorf("Expected file name isle.json, got %s", result.File)
	}

	expected := []string{
		"✓ Name: Test Isle",
		"✓ Map: 6x4",
		"✓ Vehicles: 2",
		"✓ Monsters: 1",
	}
	for _, e := range expected {
		if !containsPrefix(result.Errors, e) {
			t.Errorf("Expected %q in report, got %v", e, result.Errors)
		}
	}
}

func TestValidateMap_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "Invalid JSON",
			content:  `{"name": "test", invalid json}`,
			expected: "Failed to load",
		},
		{
			name: "Unreachable vehicle",
			content: `{
  "name": "Far Ship",
  "layout": ["~~~~~~", "~..~~~", "~~~~~~"],
  "legend": {"~": "0000ff", ".": "00ff00"},
  "player_start": {"x": 1, "y": 1},
  "entities": [
    {"type": "vehicle", "id": "ship_1", "vehicleType": "ship", "position": {"x": 5, "y": 2}, "direction": "west"}
  ]
}`,
			expected: "Unreachable: ship ship_1",
		},
		{
			name: "Stranded monster",
			content: `{
  "name": "Wet Thief",
  "layout": ["~~~~~", "~.,.~", "~~~~~"],
  "legend": {"~": "0000ff", ".": "00ff00", ",": "00ffff"},
  "player_start": {"x": 1, "y": 1},
  "entities": [
    {"type": "monster", "id": "thief_1", "monsterType": "thief", "position": {"x": 2, "y": 1}, "direction": "west"}
  ]
}`,
			expected: "Stranded: monster thief_1",
		},
		{
			name: "Unknown terrain",
			content: `{
  "name": "Strange Land",
  "layout": ["~~~~", "~.?~", "~~~~"],
  "legend": {"~": "0000ff", ".": "00ff00", "?": "123456"},
  "player_start": {"x": 1, "y": 1},
  "entities": []
}`,
			expected: "Unknown terrain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := createConfigDir(t, map[string]string{
				"isle.json":   validMap,
				"broken.json": tt.content,
			})
			result := validateMap(newManager(t, dir), "broken")

			if result.Valid {
				t.Fatalf("Expected invalid map, got report %v", result.Errors)
			}
			if !containsPrefix(result.Errors, tt.expected) {
				t.Errorf("Expected error starting with %q, got %v", tt.expected, result.Errors)
			}
		})
	}
}

func TestValidateMap_Warnings(t *testing.T) {
	boxed := `{
  "name": "Crowded",
  "layout": ["~~~~~~", "~....~", "~~~~~~"],
  "legend": {"~": "0000ff", ".": "00ff00"},
  "player_start": {"x": 1, "y": 1},
  "entities": [
    {"type": "monster", "id": "thief_1", "monsterType": "thief", "position": {"x": 3, "y": 1}, "direction": "west"},
    {"type": "monster", "id": "thief_2", "monsterType": "thief", "position": {"x": 4, "y": 1}, "direction": "west"},
    {"type": "monster", "id": "thief_3", "monsterType": "thief", "position": {"x": 2, "y": 1}, "direction": "west"}
  ]
}`
	dir := createConfigDir(t, map[string]string{"crowded.json": boxed})
	result := validateMap(newManager(t, dir), "crowded")

	if !result.Valid {
		t.Fatalf("Expected boxed-in monsters to be a warning, got errors %v", result.Errors)
	}
	if !containsPrefix(result.Errors, "⚠ Boxed in: monster thief_2") {
		t.Errorf("Expected boxed-in warning for thief_2, got %v", result.Errors)
	}
	if containsPrefix(result.Errors, "⚠ Boxed in: monster thief_3") {
		t.Errorf("Expected thief_3 to have room, got %v", result.Errors)
	}
}

func TestMapIDs(t *testing.T) {
	dir := createConfigDir(t, map[string]string{
		"zeta.json":  validMap,
		"alpha.json": validMap,
	})
	if err := os.WriteFile(filepath.Join(dir, "maps", "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("Failed to write notes: %v", err)
	}

	ids, err := mapIDs(dir)
	if err != nil {
		t.Fatalf("mapIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "zeta" {
		t.Errorf("Expected [alpha zeta], got %v", ids)
	}
}

func TestShippedConfigs(t *testing.T) {
	configDir := "../configs"
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Skip("Configs directory not found, skipping test")
	}

	manager := newManager(t, configDir)
	ids, err := mapIDs(configDir)
	if err != nil {
		t.Fatalf("mapIDs failed: %v", err)
	}
	if len(ids) == 0 {
		t.Fatal("Expected shipped maps")
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			if result := validateMap(manager, id); !result.Valid {
				t.Errorf("Expected %s to be valid, got %v", id, result.Errors)
			}
		})
	}
}
