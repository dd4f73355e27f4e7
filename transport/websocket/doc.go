// Package websocket streams live game events to browser clients and accepts
// key presses from them.
//
// A central Hub owns every connection. The first client attached to a
// session makes the hub subscribe to that session's engine events; the last
// one leaving removes the subscription.
//
// Message Protocol:
//
//   - Incoming: {"key": "ArrowUp"}
//   - Outgoing: {"session_id": "ab12", "event": "snapshot", "snapshot": {...}}
//     with event one of snapshot, log, cue, key_result or error. Log and cue
//     payloads are in "data".
//
// A new client receives the current snapshot right after connecting. Every
// turn produces a snapshot after the player acts and after each monster that
// acts, so clients can animate the monster phase.
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
