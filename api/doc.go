// Package api provides the HTTP REST API of the game server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session {map_id, character, load_slot}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its player and log
//   - DELETE /api/sessions/{id} - Delete a session, keeping its save slot;
//     WebSocket viewers get a session_closed event
//
// Game Operations:
//   - POST /api/sessions/{id}/keys - Press {"key": "ArrowUp"} or {"keys": [...]}
//   - POST /api/sessions/{id}/save - Save into the session's slot
//   - POST /api/sessions/{id}/load - Load from the session's slot
//
// Game State:
//   - GET /api/sessions/{id}/view - Current snapshot (?format=text for a character grid)
//   - GET /api/sessions/{id}/log - Action log (?limit=N for the last N lines)
//
// Saves and Maps:
//   - GET /api/saves - Save slots that load_slot can continue
//   - GET /api/maps - Maps sessions can start on
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket event stream, see transport/websocket
//
// Keys are the names a browser reports: ArrowUp, ArrowDown, ArrowLeft,
// ArrowRight, "a" (attack), "b" (board), " " (wait), "s" (save), "l" (load)
// and "\" (debug view).
//
// Error Handling:
//
// Errors are returned as JSON with the matching HTTP status code:
//
//	{
//	  "error": "session ab12: session not found",
//	  "code": 404
//	}
package api
