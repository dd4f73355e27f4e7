package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/wricardo/klassik/logger"
)

// DefaultTileKey is the catalog key under which the fallback tile is stored
const DefaultTileKey = "default"

// ErrNoDefaultTile signals a broken tile catalog
var ErrNoDefaultTile = errors.New("default tile is not defined")

// TileProperties are the static passability flags of a tile
type TileProperties struct {
	PassibleOnFoot  bool `json:"passible_on_foot,omitempty"`
	PassibleOnHorse bool `json:"passible_on_horse,omitempty"`
	PassibleOnRaft  bool `json:"passible_on_raft,omitempty"`
	PassibleOnShip  bool `json:"passible_on_ship,omitempty"`
}

// Tile is a named terrain type
type Tile struct {
	Name       string         `json:"name"`
	Properties TileProperties `json:"properties"`
}

// TileDefinition is the catalog file form of a tile
type TileDefinition struct {
	Index      string         `json:"index"`
	Name       string         `json:"name"`
	Default    bool           `json:"default,omitempty"`
	Properties TileProperties `json:"properties"`
}

// TileCatalog maps a color key to a tile
type TileCatalog struct {
	tiles map[string]Tile
	def   Tile
}

// NewTileCatalog builds a catalog. Exactly one definition must be marked default.
func NewTileCatalog(defs []TileDefinition) (*TileCatalog, error) {
	c := &TileCatalog{tiles: make(map[string]Tile, len(defs))}
	hasDefault := false

	for _, d := range defs {
		key := strings.ToLower(d.Index)
		if !isColorKey(key) {
			return nil, fmt.Errorf("tile %q: index %q is not a 6 digit hex color", d.Name, d.Index)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("tile with index %q has no name", d.Index)
		}
		if _, dup := c.tiles[key]; dup {
			return nil, fmt.Errorf("duplicate tile index %q", key)
		}
		tile := Tile{Name: d.Name, Properties: d.Properties}
		c.tiles[key] = tile
		if d.Default {
			if hasDefault {
				return nil, fmt.Errorf("tile %q: more than one default tile", d.Name)
			}
			c.def = tile
			hasDefault = true
		}
	}

	if !hasDefault {
		return nil, ErrNoDefaultTile
	}
	return c, nil
}

// Lookup returns the tile for a color key
func (c *TileCatalog) Lookup(key string) (Tile, bool) {
	if key == DefaultTileKey {
		return c.def, true
	}
	t, ok := c.tiles[key]
	return t, ok
}

// Default returns the designated fallback tile
func (c *TileCatalog) Default() Tile {
	return c.def
}

// Len returns the number of color keys in the catalog
func (c *TileCatalog) Len() int {
	return len(c.tiles)
}

// ColorKey formats the "rrggbb" key for a pixel color
func ColorKey(col color.Color) string {
	n := color.NRGBAModel.Convert(col).(color.NRGBA)
	return fmt.Sprintf("%02x%02x%02x", n.R, n.G, n.B)
}

func isColorKey(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// WorldMap is the world bitmap interpreted through a tile catalog
type WorldMap struct {
	img   image.Image
	tiles *TileCatalog
}

// NewWorldMap wraps decoded bitmap pixels
func NewWorldMap(img image.Image, tiles *TileCatalog) *WorldMap {
	return &WorldMap{img: img, tiles: tiles}
}

// Bounds returns the map size in tiles
func (w *WorldMap) Bounds() (width, height int) {
	b := w.img.Bounds()
	return b.Dx(), b.Dy()
}

// InBounds reports whether the coordinate lies on the bitmap
func (w *WorldMap) InBounds(c MapCoordinate) bool {
	b := w.img.Bounds()
	return image.Pt(b.Min.X+c.X, b.Min.Y+c.Y).In(b)
}

// ColorKeyAt returns the raw color key of a coordinate, or "" when out of bounds
func (w *WorldMap) ColorKeyAt(c MapCoordinate) string {
	if !w.InBounds(c) {
		return ""
	}
	b := w.img.Bounds()
	return ColorKey(w.img.At(b.Min.X+c.X, b.Min.Y+c.Y))
}

// TileAt returns the tile at a coordinate. Unknown colors and out of bounds
// coordinates yield the default tile and false.
func (w *WorldMap) TileAt(c MapCoordinate) (Tile, bool) {
	key := w.ColorKeyAt(c)
	if key == "" {
		logger.Log.WithField("component", "world_map").Debugf("Out of bounds tile at x:%d y:%d", c.X, c.Y)
		return w.tiles.Default(), false
	}
	tile, ok := w.tiles.Lookup(key)
	if !ok {
		logger.Log.WithField("component", "world_map").Debugf("Unknown tile at x:%d y:%d with index %s", c.X, c.Y, key)
		return w.tiles.Default(), false
	}
	return tile, true
}

// Catalog returns the tile catalog backing the map
func (w *WorldMap) Catalog() *TileCatalog {
	return w.tiles
}
