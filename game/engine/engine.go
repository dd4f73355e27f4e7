package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/klassik/logger"
)

// Phase is the state of the turn engine
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseAttackTargeting Phase = "attack_targeting"
	PhaseMonster         Phase = "monster"
)

// Cue is an audio/visual feedback hint for front ends. It has no gameplay
// effect.
type Cue string

const (
	CueWalk   Cue = "walk"
	CueGallop Cue = "gallop"
	CueSail   Cue = "sail"
	CueAttack Cue = "attack"
)

// EventType discriminates engine events
type EventType string

const (
	EventLog      EventType = "log"
	EventCue      EventType = "cue"
	EventSnapshot EventType = "snapshot"
)

// Event is pushed to observers as the game changes
type Event struct {
	Type     EventType `json:"type"`
	Line     string    `json:"line,omitempty"`
	Cue      Cue       `json:"cue,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Observer receives engine events. It is called without the game lock held.
type Observer func(Event)

// Persister saves and restores the session state
type Persister interface {
	Save(ctx context.Context) error
	Load(ctx context.Context) (bool, error)
}

// Keys understood by HandleKey
const (
	KeyUp     = "ArrowUp"
	KeyDown   = "ArrowDown"
	KeyLeft   = "ArrowLeft"
	KeyRight  = "ArrowRight"
	KeyAttack = "a"
	KeyBoard  = "b"
	KeyWait   = " "
	KeySave   = "s"
	KeyLoad   = "l"
	KeyDebug  = "\\"
)

// KeyDirection maps an arrow key to its direction
func KeyDirection(key string) (Direction, bool) {
	switch key {
	case KeyUp:
		return North, true
	case KeyDown:
		return South, true
	case KeyLeft:
		return West, true
	case KeyRight:
		return East, true
	}
	return "", false
}

func isWaitKey(key string) bool {
	return key == KeyWait || key == "Space" || key == "."
}

var ErrInvalidGame = errors.New("invalid game")

// Options configure a new Game
type Options struct {
	World   *WorldMap
	Overlay *MapOverlay
	Player  *Player
	Units   *UnitCatalog

	// Viewport size in tiles, DefaultViewWidth x DefaultViewHeight when zero
	ViewWidth  int
	ViewHeight int

	// Pacing is the delay after each monster that acts
	Pacing time.Duration

	// Rand drives neutral monsters; seeded from the clock when nil
	Rand *rand.Rand

	Persister Persister
	LogLimit  int
}

// KeyResult reports what a single key press did
type KeyResult struct {
	Key       string   `json:"key"`
	Handled   bool     `json:"handled"`
	Ignored   bool     `json:"ignored,omitempty"`
	TurnEnded bool     `json:"turn_ended"`
	Lines     []string `json:"lines"`
	Cues      []Cue    `json:"cues,omitempty"`
	Turn      int      `json:"turn"`
	Phase     Phase    `json:"phase"`
}

// Game is one running session: player, overlay, world and turn state.
// Every method is safe for concurrent use; input arriving while monsters
// act is dropped.
type Game struct {
	mu sync.Mutex

	world    *WorldMap
	overlay  *MapOverlay
	player   *Player
	units    *UnitCatalog
	resolver *Resolver
	log      *ActionLog

	phase  Phase
	turn   int
	debug  bool
	viewW  int
	viewH  int
	pacing time.Duration
	rng    *rand.Rand

	persister Persister
	pending   []Event

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int

	logger *logrus.Entry
}

// NewGame wires a session together
func NewGame(opts Options) (*Game, error) {
	if opts.World == nil {
		return nil, fmt.Errorf("%w: world map is required", ErrInvalidGame)
	}
	if opts.Overlay == nil {
		return nil, fmt.Errorf("%w: map overlay is required", ErrInvalidGame)
	}
	if opts.Player == nil {
		return nil, fmt.Errorf("%w: player is required", ErrInvalidGame)
	}
	if opts.ViewWidth <= 0 {
		opts.ViewWidth = DefaultViewWidth
	}
	if opts.ViewHeight <= 0 {
		opts.ViewHeight = DefaultViewHeight
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6b6c617373696b))
	}

	return &Game{
		world:     opts.World,
		overlay:   opts.Overlay,
		player:    opts.Player,
		units:     opts.Units,
		resolver:  NewResolver(opts.World, opts.Overlay),
		log:       NewActionLog(opts.LogLimit),
		phase:     PhaseIdle,
		viewW:     opts.ViewWidth,
		viewH:     opts.ViewHeight,
		pacing:    opts.Pacing,
		rng:       opts.Rand,
		persister: opts.Persister,
		observers: make(map[int]Observer),
		logger:    logger.Component("engine").WithField("map", opts.Overlay.MapName()),
	}, nil
}

// SetPersister attaches the save/load backend
func (g *Game) SetPersister(p Persister) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.persister = p
}

// Subscribe registers an observer and returns a function removing it
func (g *Game) Subscribe(fn Observer) func() {
	g.obsMu.Lock()
	defer g.obsMu.Unlock()
	id := g.nextObs
	g.nextObs++
	g.observers[id] = fn
	return func() {
		g.obsMu.Lock()
		defer g.obsMu.Unlock()
		delete(g.observers, id)
	}
}

func (g *Game) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	g.obsMu.Lock()
	observers := make([]Observer, 0, len(g.observers))
	for _, fn := range g.observers {
		observers = append(observers, fn)
	}
	g.obsMu.Unlock()

	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

// HandleKey processes one keyboard event. When the key ends the player's
// turn, the monster phase runs before HandleKey returns; it cannot be
// cancelled through ctx.
func (g *Game) HandleKey(ctx context.Context, key string) KeyResult {
	res := KeyResult{Key: key, Lines: []string{}}

	events := g.playerTurn(ctx, key, &res)
	if res.Ignored {
		g.logger.WithField("key", key).Debug("Key ignored during monster phase")
		return res
	}

	res.collect(events)
	g.dispatch(events)

	if res.TurnEnded {
		res.collect(g.monsterPhase(context.WithoutCancel(ctx)))
	}

	res.Turn, res.Phase = g.turnAndPhase()
	return res
}

// playerTurn applies the key with g.mu held and returns the resulting events
func (g *Game) playerTurn(ctx context.Context, key string, res *KeyResult) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseMonster {
		res.Ignored = true
		res.Turn = g.turn
		res.Phase = g.phase
		return nil
	}

	res.Handled, res.TurnEnded = g.playerAction(ctx, key)
	if res.TurnEnded {
		g.phase = PhaseMonster
	}
	return g.flushLocked(true)
}

func (g *Game) turnAndPhase() (int, Phase) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn, g.phase
}

func (r *KeyResult) collect(events []Event) {
	for _, ev := range events {
		switch ev.Type {
		case EventLog:
			r.Lines = append(r.Lines, ev.Line)
		case EventCue:
			r.Cues = append(r.Cues, ev.Cue)
		case EventSnapshot:
		}
	}
}

// playerAction runs with g.mu held. It returns whether the key was
// recognised and whether it ended the turn.
func (g *Game) playerAction(ctx context.Context, key string) (handled, endTurn bool) {
	if g.phase == PhaseAttackTargeting {
		g.phase = PhaseIdle
		dir, ok := KeyDirection(key)
		if !ok {
			g.logLine("Attack: Cancelled")
			return true, false
		}
		g.attack(dir)
		return true, true
	}

	switch key {
	case KeySave:
		g.save(ctx)
		return true, false
	case KeyLoad:
		g.load(ctx)
		return true, false
	case KeyDebug:
		g.debug = !g.debug
		return true, false
	}

	if !g.player.Alive() {
		g.logLine("You have fallen")
		return true, false
	}

	if dir, ok := KeyDirection(key); ok {
		g.move(dir)
		return true, true
	}

	switch {
	case key == KeyAttack:
		g.phase = PhaseAttackTargeting
		g.logLine("Attack")
		return true, false
	case key == KeyBoard:
		return true, g.board()
	case isWaitKey(key):
		g.logLine("Wait")
		return true, true
	}

	g.logger.WithField("key", key).Debug("Unmapped key")
	return false, false
}

func (g *Game) logLine(line string) {
	g.log.Append(line)
	g.pending = append(g.pending, Event{Type: EventLog, Line: line})
}

func (g *Game) cue(c Cue) {
	g.pending = append(g.pending, Event{Type: EventCue, Cue: c})
}

// flushLocked returns the pending events, optionally followed by a snapshot
func (g *Game) flushLocked(withSnapshot bool) []Event {
	events := g.pending
	g.pending = nil
	if withSnapshot {
		snap := g.snapshotLocked()
		events = append(events, Event{Type: EventSnapshot, Snapshot: &snap})
	}
	return events
}

func (g *Game) move(dir Direction) {
	target := g.player.Position.Step(dir)
	if !g.resolver.CanPass(target, g.player.Vehicle) {
		g.logLine(fmt.Sprintf("Move %s: Blocked", dir))
		return
	}

	g.player.Position = target
	g.player.LastMoveDirection = dir
	g.logLine(fmt.Sprintf("Move %s: OK", dir))

	switch g.player.Vehicle {
	case VehicleNone:
		g.cue(CueWalk)
	case VehicleHorse:
		g.cue(CueGallop)
	case VehicleRaft, VehicleShip:
		g.cue(CueSail)
	}
}

func (g *Game) attack(dir Direction) {
	target := g.player.Position.Step(dir)

	switch e := g.overlay.EntityAt(target).(type) {
	case *Monster:
		g.player.Attack(e)
		g.cue(CueAttack)
		if e.Alive() {
			g.logLine(fmt.Sprintf("Attack %s: Hit %s (%d/%d hp)", dir, e.MonsterType, e.HP, e.MaxHP))
			return
		}
		g.logLine(fmt.Sprintf("Attack %s: Defeated %s", dir, e.MonsterType))
		g.logger.WithField("entity_id", e.ID).Info("Monster defeated")
		if e.XP > 0 {
			g.player.XP += e.XP
			g.logLine(fmt.Sprintf("Gained %d xp", e.XP))
		}
		for g.player.LevelUp() {
			g.logLine(fmt.Sprintf("Level up! You are now level %d", g.player.Level))
		}
	case *Vehicle, nil:
		g.logLine(fmt.Sprintf("Attack %s: Nothing there", dir))
	}
}

// board toggles between riding and walking. It reports whether the turn ends.
func (g *Game) board() bool {
	pos := g.player.Position

	if g.player.Vehicle == VehicleNone {
		switch e := g.overlay.EntityAt(pos).(type) {
		case *Vehicle:
			e.Destroyed = true
			g.player.Vehicle = e.VehicleType
			g.logLine("Board: OK")
			return true
		case *Monster, nil:
			g.logLine("Board: Nothing here")
			return false
		}
		return false
	}

	if g.overlay.EntityAt(pos) != nil {
		g.logLine("Unboard: Occupied")
		return false
	}

	vt := g.player.Vehicle
	v, err := NewVehicle(fmt.Sprintf("%s_%s", vt, uuid.NewString()), vt, pos, g.player.LastMoveDirection)
	if err != nil {
		g.logger.WithError(err).Error("Failed to spawn vehicle on unboard")
		return false
	}
	g.overlay.Add(v)
	g.player.Vehicle = VehicleNone
	g.logLine("Unboard")
	return true
}

func (g *Game) save(ctx context.Context) {
	if g.persister == nil {
		g.logLine("Save not available")
		return
	}
	if err := g.persister.Save(ctx); err != nil {
		g.logger.WithError(err).Error("Save failed")
		g.logLine("Save failed")
		return
	}
	g.logLine("Game Saved")
}

func (g *Game) load(ctx context.Context) {
	if g.persister == nil {
		g.logLine("No save data available")
		return
	}
	found, err := g.persister.Load(ctx)
	if err != nil {
		g.logger.WithError(err).Error("Load failed")
		g.logLine("Load failed")
		return
	}
	if !found {
		g.logLine("No save data available")
		return
	}
	g.phase = PhaseIdle
	g.logLine("Loaded")
}

// monsterPhase lets every live monster in the viewport act once, in
// overlay order, then returns to idle and advances the turn counter
func (g *Game) monsterPhase(ctx context.Context) []Event {
	var all []Event

	finished := false
	defer func() {
		if !finished {
			g.mu.Lock()
			g.phase = PhaseIdle
			g.mu.Unlock()
		}
	}()

	g.mu.Lock()
	topLeft, bottomRight := g.viewportLocked()
	monsters := g.overlay.Monsters(topLeft, bottomRight)
	g.mu.Unlock()

	for _, m := range monsters {
		events, acted := g.monsterTurn(m)
		all = append(all, events...)
		g.dispatch(events)

		if acted && !skipPacing(ctx) {
			pace(ctx, g.pacing)
		}
	}

	g.mu.Lock()
	g.phase = PhaseIdle
	g.turn++
	events := g.flushLocked(true)
	g.mu.Unlock()
	finished = true

	g.dispatch(events)
	return append(all, events...)
}

// monsterTurn runs one monster step with g.mu held
func (g *Game) monsterTurn(m *Monster) ([]Event, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	outcome := MonsterStep(m, g.player, g.resolver, g.rng)
	switch outcome.Action {
	case MonsterAttacked:
		g.cue(CueAttack)
		g.logLine(fmt.Sprintf("%s attacks you for %d damage", m.MonsterType, outcome.Damage))
		if !g.player.Alive() {
			g.logLine("You have fallen")
		}
	case MonsterMoved:
		g.logger.WithFields(logrus.Fields{
			"entity_id": m.ID,
			"from":      outcome.From.String(),
			"to":        outcome.To.String(),
		}).Debug("Monster moved")
	case MonsterIdle:
	}
	acted := outcome.Action != MonsterIdle
	return g.flushLocked(acted), acted
}

type skipPacingKey struct{}

// WithoutPacing marks ctx so the monster phase runs without the pacing
// delay. Bulk key requests use it.
func WithoutPacing(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipPacingKey{}, true)
}

func skipPacing(ctx context.Context) bool {
	skip, _ := ctx.Value(skipPacingKey{}).(bool)
	return skip
}

func pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// viewportLocked returns the inclusive viewport box centred on the player
func (g *Game) viewportLocked() (topLeft, bottomRight MapCoordinate) {
	topLeft = Coord(g.player.Position.X-g.viewW/2, g.player.Position.Y-g.viewH/2)
	bottomRight = Coord(topLeft.X+g.viewW-1, topLeft.Y+g.viewH-1)
	return topLeft, bottomRight
}

// Viewport returns the current viewport box
func (g *Game) Viewport() (topLeft, bottomRight MapCoordinate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.viewportLocked()
}

// Player returns a copy of the player
func (g *Game) Player() Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.player
}

// Phase returns the current phase
func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Turn returns the number of completed turns
func (g *Game) Turn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// Debug reports whether the debug view is on
func (g *Game) Debug() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.debug
}

// LogTail returns the last n action lines (all when n <= 0) and the total
// number of lines held
func (g *Game) LogTail(n int) ([]string, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.log.Tail(n), g.log.Len()
}

// TileAt returns the tile at a map coordinate
func (g *Game) TileAt(c MapCoordinate) (Tile, bool) {
	return g.world.TileAt(c)
}

// EntitiesInRect returns the live entities in the inclusive box
func (g *Game) EntitiesInRect(topLeft, bottomRight MapCoordinate) []MapEntity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.overlay.EntitiesInRect(topLeft, bottomRight)
}

// MapName returns the name of the loaded map
func (g *Game) MapName() string {
	return g.overlay.MapName()
}
