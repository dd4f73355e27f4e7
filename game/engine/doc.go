// Package engine implements the game session core of Klassik.
//
// A session is a player walking a bitmap encoded world. Every pixel color
// maps to a Tile through a TileCatalog; parked vehicles and monsters live in
// a MapOverlay. The Resolver decides passability from the tile flags and the
// overlay, and Game runs the turn state machine:
//
//	idle --a--> attack targeting --arrow--> monster phase --> idle
//	idle --arrow/b/wait--> monster phase --> idle
//
// Keys arriving during the monster phase are dropped. Every live monster in
// the player's viewport acts once per turn according to its mood, in overlay
// order, with an optional pacing delay between steps.
//
// Usage:
//
//	world := engine.NewWorldMap(img, tiles)
//	overlay := engine.NewMapOverlay("britannia", bestiary, entities...)
//	player, err := engine.NewPlayer(character, engine.Coord(200, 150))
//	if err != nil {
//		return err
//	}
//	game, err := engine.NewGame(engine.Options{
//		World:   world,
//		Overlay: overlay,
//		Player:  player,
//		Units:   units,
//	})
//	if err != nil {
//		return err
//	}
//	res := game.HandleKey(ctx, engine.KeyUp)
//	fmt.Println(res.Lines) // [Move north: OK]
//
// Player and MapOverlay implement SaveID/Serialize/Deserialize so the
// save package can persist them.
package engine
