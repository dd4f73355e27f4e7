package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF world bitmaps
	_ "image/png" // register PNG world bitmaps
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp" // register BMP world bitmaps

	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/logger"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMapNotFound    = errors.New("map not found")
)

const (
	catalogFile = "catalog.json"
	mapsDir     = "maps"

	// DefaultMapID is used when no map is requested
	DefaultMapID = "britannia"
)

// Catalog is the content of catalog.json
type Catalog struct {
	Tiles    []engine.TileDefinition  `json:"tiles"`
	Units    []engine.Unit            `json:"units"`
	Monsters []engine.MonsterTemplate `json:"monsters"`
}

// MapDefinition is the content of maps/<id>.json. The world is either a
// bitmap file next to the definition or an inline layout with a legend.
type MapDefinition struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Bitmap      string                    `json:"bitmap,omitempty"`
	Layout      []string                  `json:"layout,omitempty"`
	Legend      map[string]string         `json:"legend,omitempty"`
	PlayerStart engine.MapCoordinate      `json:"player_start"`
	ViewWidth   int                       `json:"view_width,omitempty"`
	ViewHeight  int                       `json:"view_height,omitempty"`
	Entities    []engine.EntityDefinition `json:"entities"`
}

// World is a validated map ready to start sessions on
type World struct {
	ID         string
	Definition MapDefinition
	Map        *engine.WorldMap
	bestiary   *engine.Bestiary
}

// NewOverlay builds a fresh overlay holding the map's initial entities
func (w *World) NewOverlay() (*engine.MapOverlay, error) {
	entities := make([]engine.MapEntity, 0, len(w.Definition.Entities))
	for _, def := range w.Definition.Entities {
		e, err := def.Hydrate(w.bestiary)
		if err != nil {
			return nil, fmt.Errorf("%w: map %s: %v", ErrInvalidConfig, w.ID, err)
		}
		entities = append(entities, e)
	}
	return engine.NewMapOverlay(w.ID, w.bestiary, entities...), nil
}

// MapInfo summarizes an available map
type MapInfo struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	PlayerStart engine.MapCoordinate `json:"player_start"`
	Entities    int                  `json:"entities"`
}

// Manager loads the tile/unit/monster catalog once and caches maps
type Manager struct {
	configDir string
	tiles     *engine.TileCatalog
	units     *engine.UnitCatalog
	bestiary  *engine.Bestiary
	defaultID string
	worlds    map[string]*World
	mu        sync.RWMutex
}

// NewManager loads and validates the catalog and the default map. Any
// problem here is a broken installation and should abort startup.
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		worlds:    make(map[string]*World),
	}

	if err := m.loadCatalog(); err != nil {
		return nil, err
	}
	if err := m.loadDefaultMap(); err != nil {
		return nil, fmt.Errorf("failed to load default map: %w", err)
	}
	return m, nil
}

func (m *Manager) loadCatalog() error {
	data, err := os.ReadFile(filepath.Join(m.configDir, catalogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, catalogFile)
		}
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("%w: failed to parse catalog: %v", ErrInvalidConfig, err)
	}

	tiles, err := engine.NewTileCatalog(catalog.Tiles)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	bestiary := engine.DefaultBestiary()
	if len(catalog.Monsters) > 0 {
		if bestiary, err = engine.NewBestiary(catalog.Monsters); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	units, err := engine.NewUnitCatalog(catalog.Units)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := units.Require(engine.RequiredUnits(bestiary)...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.tiles = tiles
	m.units = units
	m.bestiary = bestiary
	logger.Component("config").WithFields(map[string]interface{}{
		"tiles":    tiles.Len(),
		"monsters": len(bestiary.Types()),
	}).Debug("Catalog loaded")
	return nil
}

// LoadWorld loads a map by id
func (m *Manager) LoadWorld(id string) (*World, error) {
	m.mu.RLock()
	if w, exists := m.worlds[id]; exists {
		m.mu.RUnlock()
		return w, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, exists := m.worlds[id]; exists {
		return w, nil
	}

	w, err := m.readWorld(id)
	if err != nil {
		return nil, err
	}
	m.worlds[id] = w
	return w, nil
}

func (m *Manager) readWorld(id string) (*World, error) {
	id = strings.TrimSuffix(id, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: %q", ErrMapNotFound, id)
	}

	dir := filepath.Join(m.configDir, mapsDir)
	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMapNotFound, id)
		}
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	var def MapDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: failed to parse map %s: %v", ErrInvalidConfig, id, err)
	}

	img, err := m.mapImage(dir, &def)
	if err != nil {
		return nil, fmt.Errorf("%w: map %s: %v", ErrInvalidConfig, id, err)
	}
	return newWorld(id, def, img, m.tiles, m.bestiary)
}

// NewWorld builds a world from a definition with an inline layout
func NewWorld(id string, def MapDefinition, tiles *engine.TileCatalog, bestiary *engine.Bestiary) (*World, error) {
	if len(def.Layout) == 0 {
		return nil, fmt.Errorf("%w: map %s: layout is required", ErrInvalidConfig, id)
	}
	img, err := engine.LayoutImage(def.Layout, def.Legend)
	if err != nil {
		return nil, fmt.Errorf("%w: map %s: %v", ErrInvalidConfig, id, err)
	}
	return newWorld(id, def, img, tiles, bestiary)
}

func newWorld(id string, def MapDefinition, img image.Image, tiles *engine.TileCatalog, bestiary *engine.Bestiary) (*World, error) {
	if bestiary == nil {
		bestiary = engine.DefaultBestiary()
	}
	w := &World{
		ID:         id,
		Definition: def,
		Map:        engine.NewWorldMap(img, tiles),
		bestiary:   bestiary,
	}
	if err := w.validate(); err != nil {
		return nil, fmt.Errorf("%w: map %s: %v", ErrInvalidConfig, id, err)
	}
	return w, nil
}

func (m *Manager) mapImage(dir string, def *MapDefinition) (image.Image, error) {
	switch {
	case def.Bitmap != "" && len(def.Layout) > 0:
		return nil, fmt.Errorf("bitmap and layout are mutually exclusive")
	case def.Bitmap != "":
		if filepath.Base(def.Bitmap) != def.Bitmap {
			return nil, fmt.Errorf("bitmap %q must be a file name in the maps directory", def.Bitmap)
		}
		f, err := os.Open(filepath.Join(dir, def.Bitmap))
		if err != nil {
			return nil, fmt.Errorf("failed to open bitmap: %w", err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bitmap %s: %w", def.Bitmap, err)
		}
		return img, nil
	case len(def.Layout) > 0:
		return engine.LayoutImage(def.Layout, def.Legend)
	}
	return nil, fmt.Errorf("either bitmap or layout is required")
}

// validate checks the start position and entity placement
func (w *World) validate() error {
	def := w.Definition
	if def.Name == "" {
		return fmt.Errorf("name is required")
	}

	start, known := w.Map.TileAt(def.PlayerStart)
	if !known || !start.Properties.PassibleOnFoot {
		return fmt.Errorf("player start %s is not a walkable tile", def.PlayerStart)
	}

	ids := make(map[string]bool, len(def.Entities))
	occupied := make(map[engine.MapCoordinate]string, len(def.Entities))
	for _, ed := range def.Entities {
		e, err := ed.Hydrate(w.bestiary)
		if err != nil {
			return err
		}
		b := e.Base()
		if ids[b.ID] {
			return fmt.Errorf("duplicate entity id %q", b.ID)
		}
		ids[b.ID] = true

		if !w.Map.InBounds(b.Position) {
			return fmt.Errorf("entity %s at %s is outside the map", b.ID, b.Position)
		}
		if b.Destroyed {
			continue
		}
		if other, taken := occupied[b.Position]; taken {
			return fmt.Errorf("entities %s and %s share %s", other, b.ID, b.Position)
		}
		occupied[b.Position] = b.ID

		if _, isMonster := e.(*engine.Monster); isMonster && b.Position.Equals(def.PlayerStart) {
			return fmt.Errorf("monster %s stands on the player start", b.ID)
		}
	}
	return nil
}

// ListMaps returns information about every loadable map
func (m *Manager) ListMaps() ([]*MapInfo, error) {
	entries, err := os.ReadDir(filepath.Join(m.configDir, mapsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to read maps directory: %w", err)
	}

	var maps []*MapInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		w, err := m.LoadWorld(id)
		if err != nil {
			logger.Component("config").WithError(err).WithField("map", id).Warn("Skipping invalid map")
			continue
		}
		width, height := w.Map.Bounds()
		maps = append(maps, &MapInfo{
			ID:          id,
			Name:        w.Definition.Name,
			Description: w.Definition.Description,
			Width:       width,
			Height:      height,
			PlayerStart: w.Definition.PlayerStart,
			Entities:    len(w.Definition.Entities),
		})
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].ID < maps[j].ID })
	return maps, nil
}

// DefaultMapID returns the id of the map used when none is requested
func (m *Manager) DefaultMapID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault changes the default map
func (m *Manager) SetDefault(id string) error {
	if _, err := m.LoadWorld(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = id
	return nil
}

// Tiles returns the tile catalog
func (m *Manager) Tiles() *engine.TileCatalog {
	return m.tiles
}

// Units returns the unit catalog
func (m *Manager) Units() *engine.UnitCatalog {
	return m.units
}

// Bestiary returns the monster templates
func (m *Manager) Bestiary() *engine.Bestiary {
	return m.bestiary
}

// RefreshCache drops cached maps and reloads the catalog from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.worlds = make(map[string]*World)
	m.mu.Unlock()

	if err := m.loadCatalog(); err != nil {
		return err
	}
	return m.loadDefaultMap()
}

// loadDefaultMap prefers DefaultMapID and falls back to the first valid map
func (m *Manager) loadDefaultMap() error {
	if _, err := m.LoadWorld(DefaultMapID); err == nil {
		m.mu.Lock()
		m.defaultID = DefaultMapID
		m.mu.Unlock()
		return nil
	} else if !errors.Is(err, ErrMapNotFound) {
		return err
	}

	maps, err := m.ListMaps()
	if err != nil {
		return err
	}
	if len(maps) == 0 {
		return fmt.Errorf("%w: no maps in %s", ErrConfigNotFound, filepath.Join(m.configDir, mapsDir))
	}

	m.mu.Lock()
	m.defaultID = maps[0].ID
	m.mu.Unlock()
	return nil
}
