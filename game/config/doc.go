// Package config loads the world content: the tile, unit and monster
// catalog and the available maps.
//
// Layout of a config directory:
//
//	configs/
//	  catalog.json        tiles, units and monster templates
//	  maps/<id>.json      one map definition per file
//	  maps/<bitmap>.png   optional world bitmaps referenced by a map
//
// A map is either a bitmap whose pixel colors are tile indexes ("rrggbb")
// or an inline layout of characters translated through a legend. Pixels
// whose color is not in the catalog resolve to the default tile and are
// reported as unknown.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	world, err := manager.LoadWorld(manager.DefaultMapID())
//	overlay, err := world.NewOverlay()
//
// Validation:
//
// Catalog problems (missing default tile, duplicate indexes, missing units)
// make NewManager fail. Maps are validated on load for:
//   - a walkable, known player start
//   - unique entity ids and one live entity per coordinate
//   - known monster types and vehicle types
package config
