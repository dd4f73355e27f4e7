// Package service is the layer between the transports (REST, WebSocket, MCP)
// and the game engine.
//
// GameService is the main interface. SessionManager and ConfigManager are the
// two collaborators it needs; game/session and game/config provide the
// production implementations.
//
// Each session owns one engine.Game and one save.Manager bound to a save
// slot. Key presses go straight to the game, which serializes them itself;
// the service holds no lock across a turn, so one session waiting on monster
// pacing never blocks another.
//
// Usage:
//
//	configs, err := config.NewManager("configs")
//	sessions := session.NewManager(configs.Units(), store, 150*time.Millisecond)
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{
//		Character: engine.Character{Name: "Iolo", Sex: engine.Male, Strength: 20},
//	})
//	resp, err := svc.PressKey(ctx, info.ID, engine.KeyUp)
package service
