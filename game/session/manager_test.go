package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/save"
	"github.com/wricardo/klassik/game/service"
)

func createTestWorld(t *testing.T) *config.World {
	t.Helper()
	tiles, err := engine.NewTileCatalog([]engine.TileDefinition{
		{Index: "0000ff", Name: "deep_water", Default: true, Properties: engine.TileProperties{PassibleOnShip: true}},
		{Index: "00ff00", Name: "grass", Properties: engine.TileProperties{PassibleOnFoot: true, PassibleOnHorse: true}},
	})
	if err != nil {
		t.Fatalf("Failed to build tiles: %v", err)
	}
	world, err := config.NewWorld("test", config.MapDefinition{
		Name: "Test",
		Layout: []string{
			"~~~~~~",
			"~....~",
			"~....~",
			"~~~~~~",
		},
		Legend:      map[string]string{"~": "0000ff", ".": "00ff00"},
		PlayerStart: engine.Coord(1, 1),
		Entities: []engine.EntityDefinition{
			{Type: engine.EntityVehicle, ID: "horse_1", VehicleType: engine.VehicleHorse, Position: engine.Coord(4, 2), Direction: engine.East},
		},
	}, tiles, nil)
	if err != nil {
		t.Fatalf("Failed to build world: %v", err)
	}
	return world
}

func createTestCharacter() engine.Character {
	return engine.Character{Name: "Iolo", Sex: engine.Male, Strength: 15, Agility: 10, Intelligence: 10, Luck: 5}
}

func createSpec(t *testing.T, id string) service.SessionSpec {
	return service.SessionSpec{ID: id, World: createTestWorld(t), Character: createTestCharacter()}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(nil, nil, 0)

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create(createSpec(t, "test-session"))
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Game == nil || session.Saves == nil {
			t.Fatal("Expected game and save manager to be initialized")
		}
		if session.MapID != "test" {
			t.Errorf("Expected map 'test', got '%s'", session.MapID)
		}
		if session.Saves.Slot() != "test-session" {
			t.Errorf("Expected slot to default to the session ID, got '%s'", session.Saves.Slot())
		}
		if p := session.Game.Player(); !p.Position.Equals(engine.Coord(1, 1)) || p.Name != "Iolo" {
			t.Errorf("Expected Iolo at (1,1), got %s at %s", p.Name, p.Position)
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create(createSpec(t, ""))
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("explicit slot", func(t *testing.T) {
		spec := createSpec(t, "")
		spec.Slot = "campaign"
		session, err := manager.Create(spec)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.Saves.Slot() != "campaign" {
			t.Errorf("Expected slot 'campaign', got '%s'", session.Saves.Slot())
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		if _, err := manager.Create(createSpec(t, "test-session")); err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		if _, err := manager.Create(createSpec(t, "TEST-SESSION")); err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		if _, err := manager.Create(createSpec(t, "../escape")); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid slot", func(t *testing.T) {
		spec := createSpec(t, "")
		spec.Slot = "bad slot"
		if _, err := manager.Create(spec); !errors.Is(err, save.ErrInvalidSlot) {
			t.Errorf("Expected ErrInvalidSlot, got %v", err)
		}
	})

	t.Run("invalid character", func(t *testing.T) {
		spec := createSpec(t, "")
		spec.Character.Name = ""
		if _, err := manager.Create(spec); !errors.Is(err, engine.ErrNameRequired) {
			t.Errorf("Expected ErrNameRequired, got %v", err)
		}
	})

	t.Run("missing world", func(t *testing.T) {
		if _, err := manager.Create(service.SessionSpec{Character: createTestCharacter()}); err == nil {
			t.Error("Expected error without world")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager(nil, nil, 0)
	created, _ := manager.Create(createSpec(t, "get-test"))

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Errorf("Expected session '%s', got '%s'", created.ID, session.ID)
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session != created {
			t.Error("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	store := save.NewMemoryStore()
	manager := NewManager(nil, store, 0)
	session, _ := manager.Create(createSpec(t, "delete-test"))
	if err := session.Saves.Save(context.Background()); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	t.Run("delete existing session", func(t *testing.T) {
		if err := manager.Delete("DELETE-TEST"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
			t.Error("Expected session to be deleted")
		}
	})

	t.Run("save slot survives", func(t *testing.T) {
		slots, err := manager.Slots(context.Background())
		if err != nil {
			t.Fatalf("Failed to list slots: %v", err)
		}
		if len(slots) != 1 || slots[0] != "delete-test" {
			t.Errorf("Expected slot delete-test to remain, got %v", slots)
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager(nil, nil, 0)
	for i := 1; i <= 3; i++ {
		if _, err := manager.Create(createSpec(t, fmt.Sprintf("list-%d", i))); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 || manager.Count() != 3 {
		t.Errorf("Expected 3 sessions, got %d (count %d)", len(sessions), manager.Count())
	}

	found := make(map[string]bool)
	for _, s := range sessions {
		found[s.ID] = true
	}
	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager(nil, nil, 0)

	manager.Create(createSpec(t, "expired"))
	time.Sleep(60 * time.Millisecond)
	manager.Create(createSpec(t, "active"))

	if deleted := manager.CleanupExpiredSessions(30 * time.Millisecond); deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_RunCleanupStopsWithContext(t *testing.T) {
	manager := NewManager(nil, nil, 0)
	manager.Create(createSpec(t, "old"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.RunCleanup(ctx, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for manager.Count() > 0 {
		select {
		case <-deadline:
			t.Fatal("Expected cleanup to remove the session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected RunCleanup to return after cancel")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager(nil, nil, 0)

	session, _ := manager.Create(createSpec(t, "access-test"))
	originalTime := session.LastAccessedAt()

	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	if !session.LastAccessedAt().After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}
	if err := manager.UpdateLastAccessed("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ExplicitSaveAndContinue(t *testing.T) {
	ctx := context.Background()
	store := save.NewMemoryStore()
	manager := NewManager(nil, store, 0)

	first, _ := manager.Create(createSpec(t, "first"))
	first.Game.HandleKey(ctx, engine.KeyRight)
	first.Game.HandleKey(ctx, engine.KeySave)
	first.Game.HandleKey(ctx, engine.KeyDown)

	if err := manager.Delete("first"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}

	spec := createSpec(t, "second")
	spec.Slot = "first"
	second, err := manager.Create(spec)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	res := second.Game.HandleKey(ctx, engine.KeyLoad)
	if len(res.Lines) != 1 || res.Lines[0] != "Loaded" {
		t.Errorf("Expected [Loaded], got %v", res.Lines)
	}
	// only the explicit save is kept, not the later move
	if p := second.Game.Player(); !p.Position.Equals(engine.Coord(2, 1)) {
		t.Errorf("Expected continued game at the save point (2,1), got %s", p.Position)
	}

	slots, err := manager.Slots(ctx)
	if err != nil {
		t.Fatalf("Failed to list slots: %v", err)
	}
	if len(slots) != 1 || slots[0] != "first" {
		t.Errorf("Expected slots [first], got %v", slots)
	}
}

func TestManager_ConcurrentKeysAndSaves(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(nil, save.NewMemoryStore(), 0)
	session, _ := manager.Create(createSpec(t, "busy"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keys := []string{engine.KeyRight, engine.KeyLeft, engine.KeyBoard}
		for i := 0; i < 200; i++ {
			session.Game.HandleKey(ctx, keys[i%len(keys)])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			session.Game.HandleKey(ctx, engine.KeySave)
			session.Game.Snapshot()
		}
	}()
	wg.Wait()

	res := session.Game.HandleKey(ctx, engine.KeyLoad)
	if len(res.Lines) != 1 || res.Lines[0] != "Loaded" {
		t.Errorf("Expected [Loaded], got %v", res.Lines)
	}
	p := session.Game.Player()
	if !p.Position.Equals(engine.Coord(1, 1)) && !p.Position.Equals(engine.Coord(2, 1)) {
		t.Errorf("Expected a saved position on the walked row, got %s", p.Position)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager(nil, nil, 0)
	world := createTestWorld(t)

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := manager.Create(service.SessionSpec{World: world, Character: createTestCharacter()})
			if err != nil {
				errs <- err
				return
			}
			if _, err := manager.Get(session.ID); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(nil, nil, 0)
	world := createTestWorld(t)

	session1, _ := manager.Create(service.SessionSpec{ID: "iso-1", World: world, Character: createTestCharacter()})
	session2, _ := manager.Create(service.SessionSpec{ID: "iso-2", World: world, Character: createTestCharacter()})

	session1.Game.HandleKey(ctx, engine.KeyRight)

	if p := session2.Game.Player(); !p.Position.Equals(engine.Coord(1, 1)) {
		t.Errorf("Session 2 should not be affected by session 1 moves, got %s", p.Position)
	}
	if p := session1.Game.Player(); !p.Position.Equals(engine.Coord(2, 1)) {
		t.Errorf("Expected session 1 at (2,1), got %s", p.Position)
	}
}
