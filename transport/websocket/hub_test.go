package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/service"
)

// fakeService drives real games without the session layer
type fakeService struct {
	mu    sync.Mutex
	games map[string]*engine.Game
	subs  int
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	tiles, err := engine.NewTileCatalog([]engine.TileDefinition{
		{Index: "0000ff", Name: "deep_water", Default: true},
		{Index: "00ff00", Name: "grass", Properties: engine.TileProperties{PassibleOnFoot: true}},
	})
	if err != nil {
		t.Fatalf("Failed to build tiles: %v", err)
	}
	img, err := engine.LayoutImage([]string{".....", ".....", "....."}, map[string]string{".": "00ff00"})
	if err != nil {
		t.Fatalf("Failed to build layout: %v", err)
	}
	player, err := engine.NewPlayer(engine.Character{Name: "Dupre", Sex: engine.Male}, engine.Coord(1, 1))
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	game, err := engine.NewGame(engine.Options{
		World:   engine.NewWorldMap(img, tiles),
		Overlay: engine.NewMapOverlay("test", nil),
		Player:  player,
	})
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return &fakeService{games: map[string]*engine.Game{"ab12": game}}
}

func (f *fakeService) game(id string) (*engine.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	return g, nil
}

func (f *fakeService) PressKey(ctx context.Context, sessionID, key string) (*service.KeyResponse, error) {
	g, err := f.game(sessionID)
	if err != nil {
		return nil, err
	}
	res := g.HandleKey(ctx, key)
	snap := g.Snapshot()
	return &service.KeyResponse{Result: res, Snapshot: &snap}, nil
}

func (f *fakeService) GetView(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	g, err := f.game(sessionID)
	if err != nil {
		return nil, err
	}
	snap := g.Snapshot()
	return &snap, nil
}

func (f *fakeService) Subscribe(ctx context.Context, sessionID string, fn engine.Observer) (func(), error) {
	g, err := f.game(sessionID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.subs++
	f.mu.Unlock()
	unsubscribe := g.Subscribe(fn)
	return func() {
		unsubscribe()
		f.mu.Lock()
		f.subs--
		f.mu.Unlock()
	}, nil
}

func (f *fakeService) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs
}

func startHub(t *testing.T) (*Hub, *fakeService, *httptest.Server) {
	t.Helper()
	svc := newFakeService(t)
	hub := NewHub(svc)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, svc, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode message %s: %v", data, err)
	}
	return msg
}

// readUntil collects messages up to and including the first with event
func readUntil(t *testing.T, conn *websocket.Conn, event string) []Message {
	t.Helper()
	var msgs []Message
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		msgs = append(msgs, msg)
		if msg.Event == event {
			return msgs
		}
	}
	t.Fatalf("Never received %s event", event)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWS_UnknownSession(t *testing.T) {
	_, _, server := startHub(t)

	resp, err := http.Get(server.URL + "/ws?session=nope")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestHub_InitialSnapshot(t *testing.T) {
	hub, svc, server := startHub(t)
	conn := dial(t, server, "ab12")

	msg := readMessage(t, conn)
	if msg.Event != EventSnapshot || msg.Snapshot == nil {
		t.Fatalf("Expected initial snapshot, got %+v", msg)
	}
	if msg.SessionID != "ab12" || msg.Snapshot.Player.Name != "Dupre" {
		t.Errorf("Unexpected snapshot for %s: %+v", msg.SessionID, msg.Snapshot.Player)
	}
	if hub.ClientCount("ab12") != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount("ab12"))
	}
	if svc.subscriptions() != 1 {
		t.Errorf("Expected 1 subscription, got %d", svc.subscriptions())
	}
}

func TestHub_KeyPress(t *testing.T) {
	_, _, server := startHub(t)
	conn := dial(t, server, "ab12")
	readMessage(t, conn)

	if err := conn.WriteJSON(KeyMessage{Key: engine.KeyRight}); err != nil {
		t.Fatalf("Failed to send key: %v", err)
	}

	msgs := readUntil(t, conn, EventKeyResult)
	var lines []string
	var lastSnap *engine.Snapshot
	for _, m := range msgs {
		switch m.Event {
		case EventLog:
			lines = append(lines, m.Data.(string))
		case EventSnapshot:
			lastSnap = m.Snapshot
		}
	}
	if len(lines) != 1 || lines[0] != "Move east: OK" {
		t.Errorf("Expected [Move east: OK], got %v", lines)
	}
	if lastSnap == nil || !lastSnap.Player.Position.Equals(engine.Coord(2, 1)) {
		t.Errorf("Expected snapshot with player at (2,1), got %+v", lastSnap)
	}

	result := msgs[len(msgs)-1].Data.(map[string]interface{})
	if result["turn_ended"] != true {
		t.Errorf("Expected turn_ended in key result, got %v", result)
	}
}

func TestHub_BadMessage(t *testing.T) {
	_, _, server := startHub(t)
	conn := dial(t, server, "ab12")
	readMessage(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	msg := readMessage(t, conn)
	if msg.Event != EventError {
		t.Errorf("Expected error event, got %s", msg.Event)
	}
}

func TestHub_BroadcastToAllClients(t *testing.T) {
	hub, _, server := startHub(t)
	first := dial(t, server, "ab12")
	readMessage(t, first)
	second := dial(t, server, "ab12")
	readMessage(t, second)
	waitFor(t, func() bool { return hub.ClientCount("ab12") == 2 })

	first.WriteJSON(KeyMessage{Key: engine.KeyDown})

	// the key result goes to the sender only, engine events go to everyone
	readUntil(t, first, EventKeyResult)
	msgs := readUntil(t, second, EventLog)
	if line := msgs[len(msgs)-1].Data.(string); line != "Move south: OK" {
		t.Errorf("Expected second client to see the move, got %q", line)
	}

	hub.BroadcastEvent("ab12", "notice", "hello")
	msgs = readUntil(t, second, "notice")
	if msgs[len(msgs)-1].Data != "hello" {
		t.Errorf("Expected notice payload hello, got %v", msgs[len(msgs)-1].Data)
	}
}

func TestHub_UnsubscribesWhenLastClientLeaves(t *testing.T) {
	hub, svc, server := startHub(t)
	conn := dial(t, server, "ab12")
	readMessage(t, conn)

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ab12") == 0 })
	waitFor(t, func() bool { return svc.subscriptions() == 0 })
}
