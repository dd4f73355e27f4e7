// Package mcp exposes the game to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API of a running game server, so agents and browsers share sessions.
//
// Tools:
//   - create_session, get_session, list_sessions
//   - view: viewport as a character grid plus player stats and recent log
//   - press_key, press_keys: drive the game with browser key names
//   - save_game, load_game, game_log
//   - list_maps, describe_tile, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
