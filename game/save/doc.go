// Package save persists game state in a key-value store.
//
// Anything implementing Persistable (the player, each map overlay) is
// registered with a Manager, which writes one string entry per SaveID into a
// named slot of a Store. Four stores are provided:
//
//   - MemoryStore: process memory, for tests and throwaway servers
//   - FileStore: one JSON file per slot in a directory
//   - BoltStore: a bbolt database with one bucket per slot
//   - PostgresStore: a save_entries table keyed by (slot, key)
//
// Loading is forgiving: a missing or corrupt entry is logged and leaves
// its Persistable untouched, without stopping the other entries.
package save
