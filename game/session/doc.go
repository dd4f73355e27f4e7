// Package session keeps the running games of the server.
//
// Manager implements service.SessionManager. Each session gets its own
// engine.Game, built from a config.World, and a save.Manager writing the
// player and the map overlay into a save slot of a shared save.Store.
//
// Session identifiers are 4 hex characters, generated with crypto/rand and
// matched case-insensitively. The save slot defaults to the session ID; a
// session created to continue an older game uses that game's slot instead.
//
// Sessions live in memory only. Nothing is written automatically: a game
// survives a restart only through an explicit save, and a new session
// created with the same slot continues from that save.
package session
