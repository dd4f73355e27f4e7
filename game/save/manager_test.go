package save

import (
	"context"
	"errors"
	"testing"

	"github.com/wricardo/klassik/game/engine"
)

type stubPersistable struct {
	id      string
	value   string
	loadErr error
}

func (s *stubPersistable) SaveID() string             { return s.id }
func (s *stubPersistable) Serialize() (string, error) { return s.value, nil }
func (s *stubPersistable) Deserialize(input string) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.value = input
	return nil
}

type failingStore struct {
	*MemoryStore
}

func (f failingStore) Get(ctx context.Context, slot, key string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func TestNewManager_Validation(t *testing.T) {
	if _, err := NewManager(nil, "slot"); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := NewManager(NewMemoryStore(), "a/b"); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("Expected ErrInvalidSlot, got %v", err)
	}
}

func TestManager_LoadWithoutData(t *testing.T) {
	m, _ := NewManager(NewMemoryStore(), "empty")
	m.Register(&stubPersistable{id: "player", value: "v"})

	found, err := m.Load(context.Background())
	if err != nil || found {
		t.Errorf("Expected no data and no error, got found=%v err=%v", found, err)
	}
}

func TestManager_PartialAndCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Put(ctx, "slot", "player", "saved player")
	store.Put(ctx, "slot", "broken", "garbage")

	player := &stubPersistable{id: "player", value: "current player"}
	broken := &stubPersistable{id: "broken", value: "current broken", loadErr: errors.New("bad json")}
	missing := &stubPersistable{id: "missing", value: "current missing"}

	m, _ := NewManager(store, "slot")
	m.Register(broken, player, missing)

	found, err := m.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Expected found without error, got found=%v err=%v", found, err)
	}
	if player.value != "saved player" {
		t.Errorf("Expected player restored, got %q", player.value)
	}
	if broken.value != "current broken" {
		t.Errorf("Expected corrupt entry to leave value untouched, got %q", broken.value)
	}
	if missing.value != "current missing" {
		t.Errorf("Expected missing entry to leave value untouched, got %q", missing.value)
	}
}

func TestManager_StoreErrors(t *testing.T) {
	m, _ := NewManager(failingStore{NewMemoryStore()}, "slot")
	m.Register(&stubPersistable{id: "player"})

	found, err := m.Load(context.Background())
	if err == nil || found {
		t.Errorf("Expected store error, got found=%v err=%v", found, err)
	}
}

func TestManager_RoundTripsGameState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	player, err := engine.NewPlayer(engine.Character{Name: "Dupre", Sex: engine.Male, Strength: 20, Agility: 10}, engine.Coord(200, 150))
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	ship, _ := engine.NewVehicle("ship_1", engine.VehicleShip, engine.Coord(214, 150), engine.West)
	thief := engine.NewMonster(engine.ThiefTemplate, "thief_1", engine.Coord(205, 152), engine.South)
	overlay := engine.NewMapOverlay("britannia", nil, ship, thief)

	m, _ := NewManager(store, "dupre")
	m.Register(player, overlay)

	if err := m.Save(ctx); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if ok, _ := m.Exists(ctx); !ok {
		t.Error("Expected slot to exist after save")
	}

	// mutate everything, then load
	player.Position = engine.Coord(1, 1)
	player.Vehicle = engine.VehicleHorse
	player.HP = 3
	ship.Destroyed = true
	thief.Defend(100)
	overlay.Add(thief)

	found, err := m.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Expected load, got found=%v err=%v", found, err)
	}

	if !player.Position.Equals(engine.Coord(200, 150)) || player.Vehicle != engine.VehicleNone || player.HP != 50 {
		t.Errorf("Player not restored: %+v", player)
	}

	entities := overlay.Entities()
	if len(entities) != 2 {
		t.Fatalf("Expected 2 entities after load, got %d", len(entities))
	}
	if overlay.EntityAt(engine.Coord(214, 150)) == nil {
		t.Error("Expected ship restored as live entity")
	}
	restored, ok := overlay.EntityAt(engine.Coord(205, 152)).(*engine.Monster)
	if !ok || restored.HP != 30 {
		t.Errorf("Expected live thief with 30 hp, got %+v", restored)
	}
}
