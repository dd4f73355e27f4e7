package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/klassik/game/config"
	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// bulk keys wait for every monster phase
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Klassik",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Klassik - MCP Interface

A turn-based tile RPG. This is a thin client that proxies all requests to the REST API server.

AVAILABLE TOOLS:
- create_session: Start a game on a map (optionally continuing a save slot)
- get_session / list_sessions: Inspect sessions
- view: Current viewport as a character grid with player stats
- press_key: Press one key - requires intent explanation
- press_keys: Press several keys in sequence - requires intent explanation
- save_game / load_game: Persist or restore the session's save slot
- game_log: Recent action log lines
- list_saves: Save slots a new session can continue with load_slot
- list_maps: Maps a session can start on
- describe_tile: Details of one visible map coordinate
- game_instructions: Rules and key reference

NOTE: The 'intent' parameter on press_key/press_keys serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

var gameKeys = []string{
	engine.KeyUp, engine.KeyDown, engine.KeyLeft, engine.KeyRight,
	engine.KeyAttack, engine.KeyBoard, engine.KeyWait,
	engine.KeySave, engine.KeyLoad, engine.KeyDebug,
}

func sessionIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: fmt.Sprintf("Create a new game session. The four skills may use at most %d points in total.", engine.MaxSkillPoints),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": map[string]interface{}{
					"type":        "string",
					"description": "Map to play on (optional, defaults to the server's default map)",
				},
				"load_slot": map[string]interface{}{
					"type":        "string",
					"description": "Save slot to continue from (optional)",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Character name",
				},
				"sex": map[string]interface{}{
					"type": "string",
					"enum": []string{string(engine.Male), string(engine.Female)},
				},
				"strength":     map[string]interface{}{"type": "integer"},
				"agility":      map[string]interface{}{"type": "integer"},
				"intelligence": map[string]interface{}{"type": "integer"},
				"luck":         map[string]interface{}{"type": "integer"},
			},
			Required: []string{"name"},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "view",
		Description: "Get the current viewport, player stats and recent log",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleView)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "press_key",
		Description: "Press a single key. Arrows move (or pick the attack direction after 'a'), 'a' attacks, 'b' boards or leaves a vehicle, ' ' waits.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
				"key": map[string]interface{}{
					"type":        "string",
					"enum":        gameKeys,
					"description": "Key to press",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this key (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "key"},
		},
	}, c.handlePressKey)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "press_keys",
		Description: fmt.Sprintf("Press up to %d keys in sequence. Stops early when the player falls.", service.MaxBulkKeys),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
				"keys": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": gameKeys,
					},
					"description": "Keys to press in order",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "keys"},
		},
	}, c.handlePressKeys)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_game",
		Description: "Save the game into the session's slot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleSave)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "load_game",
		Description: "Restore the game from the session's slot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleLoad)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_log",
		Description: "Get the action log of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of most recent lines (optional)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameLog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_saves",
		Description: "List save slots that create_session can continue through load_slot",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSaves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List available maps",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMaps)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_tile",
		Description: "Get the terrain and any entity at a visible map coordinate.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Map X coordinate",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Map Y coordinate",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeTile)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func intArg(args map[string]interface{}, name string) (int, bool) {
	v, ok := args[name].(float64)
	return int(v), ok
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.CreateSessionRequest{}
	req.MapID, _ = args["map_id"].(string)
	req.LoadSlot, _ = args["load_slot"].(string)
	req.Character.Name, _ = args["name"].(string)
	if sex, ok := args["sex"].(string); ok {
		req.Character.Sex = engine.Sex(sex)
	} else {
		req.Character.Sex = engine.Male
	}
	req.Character.Strength, _ = intArg(args, "strength")
	req.Character.Agility, _ = intArg(args, "agility")
	req.Character.Intelligence, _ = intArg(args, "intelligence")
	req.Character.Luck, _ = intArg(args, "luck")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", req, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nMap: %s\nSave slot: %s\n", session.ID, session.MapID, session.Slot)
	if len(session.Log) > 0 {
		result += "Log: " + strings.Join(session.Log, " | ") + "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Map: %s, Turn: %d, HP: %d, Created: %s)\n",
			s.ID, s.MapID, s.Turn, s.Player.HP, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var snapshot engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/view"), nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handlePressKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	key, _ := args["key"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	var result service.KeyResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/keys"), map[string]string{"key": key}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatKeyResponse(&result)), nil
}

func (c *Client) handlePressKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	keysRaw, _ := args["keys"].([]interface{})
	_, _ = args["intent"].(string)

	keys := make([]string, 0, len(keysRaw))
	for _, k := range keysRaw {
		if key, ok := k.(string); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return mcp.NewToolResultError("keys must contain at least one key"), nil
	}

	var result service.BulkKeyResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/keys"), map[string][]string{"keys": keys}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkKeyResponse(sessionID, &result)), nil
}

func (c *Client) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.slotAction(ctx, request, "/save")
}

func (c *Client) handleLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.slotAction(ctx, request, "/load")
}

func (c *Client) slotAction(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.KeyResponse
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatKeyResponse(&result)), nil
}

func (c *Client) handleGameLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	path := sessionPath(sessionID, "/log")
	if limit, ok := intArg(args, "limit"); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var log service.LogResponse
	if err := c.apiCall(ctx, "GET", path, nil, &log); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLog(&log)), nil
}

func (c *Client) handleListSaves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int      `json:"count"`
		Saves []string `json:"saves"`
	}
	if err := c.apiCall(ctx, "GET", "/api/saves", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No saved games yet. Press 's' in a session to save it."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Saved games (%d):\n", response.Count)
	for _, slot := range response.Saves {
		fmt.Fprintf(&b, "• %s\n", slot)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int               `json:"count"`
		Maps  []*config.MapInfo `json:"maps"`
	}
	if err := c.apiCall(ctx, "GET", "/api/maps", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Maps:\n\n")
	for _, m := range response.Maps {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Size: %dx%d, Start: %s, Entities: %d\n\n",
			m.ID, m.Name, m.Description, m.Width, m.Height, m.PlayerStart, m.Entities)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Klassik - Complete Instructions

GAME OBJECTIVE:
Explore the world, defeat monsters for experience and grow in level. There is no final victory; stay alive.

TURNS:
• Every handled key ends your turn unless noted otherwise below
• After your turn each monster acts once, in order
• Keys pressed while monsters act are ignored

KEYS:
• ArrowUp / ArrowDown / ArrowLeft / ArrowRight: move one tile
• a: attack, then press an arrow to pick the direction
• b: board the vehicle you stand on, or leave the one you ride
• (space): wait a turn
• s / l: save / load (does not end the turn)
• \: toggle the debug view (does not end the turn)

TERRAIN:
• Each tile allows some ways of travel: foot, horse, raft or ship
• Mountains allow none. Unknown terrain blocks everything
• You can only walk onto a tile your current vehicle can travel

MONSTERS:
• aggressive: approaches and attacks when adjacent
• frightened: runs away
• neutral: stands still unless attacked, then turns aggressive
• Monsters block movement

GRID LEGEND (view tool):
• @ you
• S / H / R a ship, horse or raft
• M a monster
• ? unknown terrain
• any other letter: first letter of the terrain name (see legend below the grid)

STRATEGY TIPS:
1. Check the view before long key sequences; press_keys stops when you fall
2. Board a ship to cross deep water, a raft for shallow water
3. Save before fights; load restores the saved state
4. Level up happens automatically when you have enough experience`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var snapshot engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/view"), nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeTile(&snapshot, engine.Coord(x, y))), nil
}

func describeTile(s *engine.Snapshot, c engine.MapCoordinate) string {
	if !c.Within(s.TopLeft, s.BottomRight) {
		return fmt.Sprintf("Coordinate %s is outside the current view %s-%s", c, s.TopLeft, s.BottomRight)
	}

	row := c.Y - s.TopLeft.Y
	col := c.X - s.TopLeft.X
	if row >= len(s.Tiles) || col >= len(s.Tiles[row]) {
		return fmt.Sprintf("Coordinate %s is outside the current view %s-%s", c, s.TopLeft, s.BottomRight)
	}
	tile := s.Tiles[row][col]

	var b strings.Builder
	fmt.Fprintf(&b, "Tile at %s:\n", c)
	if tile.Unknown {
		b.WriteString("Terrain: unknown (impassable)\n")
	} else {
		fmt.Fprintf(&b, "Terrain: %s\n", tile.Name)
	}

	if c.Equals(s.Player.Position) {
		b.WriteString("You are here\n")
	}
	for _, e := range s.Entities {
		if !e.Position.Equals(c) {
			continue
		}
		switch e.Type {
		case engine.EntityVehicle:
			fmt.Fprintf(&b, "Vehicle: %s (%s) facing %s\n", e.VehicleType, e.ID, e.Direction)
		case engine.EntityMonster:
			fmt.Fprintf(&b, "Monster: %s (%s) HP %d/%d, %s\n", e.MonsterType, e.ID, e.HP, e.MaxHP, e.Mood)
		}
	}
	fmt.Fprintf(&b, "Distance: %d\n", engine.ManhattanDistance(s.Player.Position, c))
	return b.String()
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nMap: %s\nSave slot: %s\nCreated: %s\nTurn: %d (%s)\n",
		session.ID, session.MapID, session.Slot,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.Turn, session.Phase)
	b.WriteString(formatPlayer(&session.Player))
	return b.String()
}

func formatPlayer(p *engine.PlayerView) string {
	vehicle := string(p.Vehicle)
	if vehicle == "" {
		vehicle = "on foot"
	}
	line := fmt.Sprintf("%s | Position: %s | HP: %d/%d | XP: %d | Level: %d | %s\n",
		p.Name, p.Position, p.HP, p.MaxHP, p.XP, p.Level, vehicle)
	if p.HP <= 0 {
		line += "💀 You have fallen. Load a save to continue.\n"
	}
	return line
}

func formatSnapshot(s *engine.Snapshot) string {
	if s == nil {
		return "No view available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Map: %s | Turn: %d | Phase: %s\n", s.Map, s.Turn, s.Phase)
	b.WriteString(formatPlayer(&s.Player))
	fmt.Fprintf(&b, "View: %s-%s\n\n", s.TopLeft, s.BottomRight)
	b.WriteString(s.Text())

	if legend := tileLegend(s); legend != "" {
		b.WriteString("\nLegend: ")
		b.WriteString(legend)
		b.WriteString("\n")
	}

	if len(s.Entities) > 0 {
		b.WriteString("\nIn view:\n")
		for _, e := range s.Entities {
			switch e.Type {
			case engine.EntityVehicle:
				fmt.Fprintf(&b, "- %s %s at %s\n", e.VehicleType, e.ID, e.Position)
			case engine.EntityMonster:
				fmt.Fprintf(&b, "- %s %s at %s HP %d/%d (%s)\n", e.MonsterType, e.ID, e.Position, e.HP, e.MaxHP, e.Mood)
			}
		}
	}

	if n := len(s.Log); n > 0 {
		recent := s.Log
		if n > 5 {
			recent = s.Log[n-5:]
		}
		b.WriteString("\nRecent log:\n")
		for _, line := range recent {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	return b.String()
}

// tileLegend maps grid letters to the terrain names visible in the view
func tileLegend(s *engine.Snapshot) string {
	seen := map[string]bool{}
	for _, row := range s.Tiles {
		for _, t := range row {
			if t.Unknown || t.Name == "" {
				continue
			}
			seen[strings.ToLower(t.Name[:1])+"="+t.Name] = true
		}
	}
	entries := make([]string, 0, len(seen))
	for k := range seen {
		entries = append(entries, k)
	}
	sort.Strings(entries)
	return strings.Join(entries, ", ")
}

func formatKeyResponse(result *service.KeyResponse) string {
	var b strings.Builder
	r := result.Result
	switch {
	case r.Ignored:
		fmt.Fprintf(&b, "✗ Key %q ignored (monsters are acting)\n", r.Key)
	case !r.Handled:
		fmt.Fprintf(&b, "✗ Key %q not handled\n", r.Key)
	case r.TurnEnded:
		fmt.Fprintf(&b, "✓ Turn %d ended\n", r.Turn)
	default:
		b.WriteString("✓ Done (turn continues)\n")
	}

	if len(r.Lines) > 0 {
		b.WriteString("Log:\n")
		for _, line := range r.Lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	if result.Snapshot != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(result.Snapshot))
	}
	return b.String()
}

func formatBulkKeyResponse(sessionID string, result *service.BulkKeyResponse) string {
	var b strings.Builder

	mapName := ""
	if result.Snapshot != nil {
		mapName = result.Snapshot.Map
	}
	fmt.Fprintf(&b, "Session: %s • Map: %s\n", sessionID, mapName)
	fmt.Fprintf(&b, "Pressed %d/%d keys\n", result.KeysProcessed, result.RequestedKeys)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to %d keys\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}
	fmt.Fprintf(&b, "Position: %s → %s | HP: %d → %d | XP +%d\n",
		result.StartPos, result.EndPos, result.StartHP, result.EndHP, result.XPDelta)

	if len(result.Lines) > 0 {
		b.WriteString("\nLog:\n")
		for _, line := range result.Lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	if result.Snapshot != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(result.Snapshot))
	}
	return b.String()
}

func formatLog(log *service.LogResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Log (%d of %d lines):\n", len(log.Lines), log.Total)
	for _, line := range log.Lines {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}
