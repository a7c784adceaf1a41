package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/narrative"
	"github.com/misoria/frontier/game/service"
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
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Frontier",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Frontier - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Survey a hidden minefield one cell at a time. Collect the required items and
step onto the goal (G), or on sweep chapters open every safe cell. Patrols (E)
walk fixed routes; every hit or crossing costs decoys. Stepping on a mine ends
the run.

AVAILABLE TOOLS:
- create_session: Start a chapter (optional chapter_id)
- game_state: Board as you see it, decoys, items and threat
- move / bulk_move: One or several turns - requires intent explanation
- toggle_flag: Mark or unmark a suspected mine
- reset_game: Restart the chapter on a fresh board
- move_history: Past turns
- describe_cell: What a single cell shows
- list_sessions, get_session, list_configs, progress
- game_instructions: Full rules and legend

NOTE: The 'intent' parameter on move/bulk_move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
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
		Description: "Create a new session for a chapter",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chapter_id": map[string]interface{}{
					"type":        "string",
					"description": "Chapter to play, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session, including its comms log",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Turns
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board as seen by the player",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Advance one turn by stepping in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        engine.Directions,
					"description": "Direction to step",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d turns in sequence; stops at the first blocked, fatal or winning step", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": engine.Directions,
					},
					"description": "Array of moves",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_flag",
		Description: "Mark or unmark an unopened cell as a suspected mine. Flags do not consume a turn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleToggleFlag)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Restart the chapter on a freshly generated board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Chapters and progress
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available chapters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "progress",
		Description: "Show collected items, unlocked chapters and the item gallery",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProgress)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what the player can see at one cell. Unopened cells outside vision range show nothing but a flag.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column) of the cell to describe (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row) of the cell to describe (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
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
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool call arguments, tolerating a missing object
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	chapterID, _ := args["chapter_id"].(string)

	body := map[string]string{}
	if chapterID != "" {
		body["chapter_id"] = chapterID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
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
		status := "?"
		if s.GameState != nil {
			status = string(s.GameState.Player.Status)
		}
		fmt.Fprintf(&b, "- %s (Chapter: %s, Status: %s, Created: %s)\n",
			s.ID, s.ChapterID, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatSessionInfo(&info)
	if log := formatLog(info.Log, 10); log != "" {
		result += "\n\n" + log
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)
	reset, _ := args["reset"].(bool)

	// intent is only read by the caller

	body := map[string]interface{}{
		"direction": direction,
		"reset":     reset,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	movesRaw, _ := args["moves"].([]interface{})
	reset, _ := args["reset"].(bool)

	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must contain at least one direction"), nil
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleToggleFlag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/flag"), map[string]int{"x": x, "y": y}, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	verb := "Removed flag"
	if cell, err := state.Board.At(x, y); err == nil && cell.IsFlagged {
		verb = "Flagged"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (%d,%d)\n\n%s", verb, x, y, formatGameState(&state))), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)

	// The current segment comes from live state; history alone is enough on failure
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err == nil {
		result += "\n" + formatCurrentSegment(&state)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Chapters:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Mines: %d, Decoys: %d, Ruleset: %s",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.Cols, cfg.Rows, cfg.Mines, cfg.MaxDecoy, cfg.Ruleset)
		if cfg.RequiredItems > 0 {
			fmt.Fprintf(&b, ", Items needed: %d", cfg.RequiredItems)
		}
		b.WriteString("\n\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.ProgressInfo
	if err := c.apiCall(ctx, "GET", "/api/progress", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatProgress(&info)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`Frontier - Complete Instructions

OBJECTIVE:
Each chapter is a hidden minefield. You start at the bottom centre with the
spawn already swept. Goal chapters are won by collecting the required number
of items and then stepping onto the goal (G). Sweep chapters are won once every
safe cell is open.

GRID LEGEND:
  @  you            E  patrol unit (always visible)
  #  unopened       F  your flag
  .  open, no mines nearby
  1-8 open, number of adjacent mines (diagonals count)
  +  item           !  signal event
  G  goal           *  mine (run over)
  X  outside the field (describe_cell only)

Cells next to you (up, down, left, right) show their content before you open
them, except mines, which stay hidden.

TURNS:
• Every move is one turn: you step, then every patrol advances one waypoint.
• Moving off the edge does nothing and costs no turn.
• Stepping on a mine ends the run immediately.
• On sweep chapters, opening a cell with no adjacent mines opens its whole
  zero region.

PATROLS AND DECOYS:
• Ending a turn on a patrol's cell is a hit: it costs decoys equal to its attack.
• Swapping places with a patrol in one turn is a crossing: same cost, and you
  stay where you were.
• If your decoys run out you are caught and the run ends.

GOAL GATING:
• Stepping on G before collecting enough items only reports how many remain.

STRATEGY:
• Read the numbers: a 1 next to a single unopened cell pins the mine.
• Flag what you deduce (toggle_flag costs no turn).
• Watch patrol routes for two or three turns before crossing their path.
• bulk_move stops at the first blocked, fatal or winning step (max %d moves).

MOVEMENT COMMANDS:
up, down, left, right

Good luck out there.`, engine.MaxBulkMoves)

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !state.Board.InBounds(x, y) {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %dx%d (x 0-%d, y 0-%d)",
			x, y, state.Board.Cols, state.Board.Rows, state.Board.Cols-1, state.Board.Rows-1)), nil
	}

	symbol := state.VisibleSymbol(x, y)
	result := fmt.Sprintf(`Cell at position (%d, %d):
━━━━━━━━━━━━━━━━━━━━━━━━
Symbol: %s
Description: %s
Distance from you: %d`,
		x, y, symbol, describeSymbol(symbol),
		engine.ManhattanDistance(state.Player.Pos, engine.Coord{X: x, Y: y}))

	return mcp.NewToolResultText(result), nil
}

func describeSymbol(symbol string) string {
	switch symbol {
	case engine.SymbolPlayer:
		return "Your current position"
	case engine.SymbolHostile:
		return "Patrol unit - moving onto or through it costs decoys"
	case engine.SymbolUnopened:
		return "Unopened - contents unknown"
	case engine.SymbolFlag:
		return "Flagged as a suspected mine"
	case engine.SymbolMine:
		return "Mine"
	case engine.SymbolGoal:
		return "Goal - step here with enough items to clear the chapter"
	case engine.SymbolEvent:
		return "Signal event"
	case engine.SymbolItem:
		return "Item - step here to collect it"
	case engine.SymbolEmpty:
		return "Open, no adjacent mines"
	case engine.SymbolWall:
		return "Outside the field"
	}
	return fmt.Sprintf("Open, %s adjacent mine(s)", symbol)
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	chapter := info.ChapterID
	if info.Chapter != nil && info.Chapter.Name != "" {
		chapter = fmt.Sprintf("%s (%s)", info.Chapter.Name, info.ChapterID)
	}
	return fmt.Sprintf("Session: %s\nChapter: %s\nCreated: %s\n\n%s",
		info.ID, chapter,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(info.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	p := state.Player

	fmt.Fprintf(&result, "Position: (%d,%d) | Decoys: %d/%d | Items: %d/%d | Turn: %d\n\n",
		p.Pos.X, p.Pos.Y, p.HP, p.MaxHP, p.Collected, state.RequiredItems, state.Turn)

	if v := formatLocal3x3(state); v != "" {
		result.WriteString("Local 3x3:\n")
		result.WriteString(v + "\n")
	}

	for _, row := range state.RenderRows() {
		result.WriteString(row)
		result.WriteString("\n")
	}

	switch p.Status {
	case engine.StatusWon:
		result.WriteString("\n🎉 VICTORY!")
	case engine.StatusLost:
		result.WriteString("\n💀 GAME OVER")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move failed\n")
	}

	t := result.Turn
	fmt.Fprintf(&b, "Turn %d: (%d,%d)→(%d,%d)", t.Turn, t.From.X, t.From.Y, t.To.X, t.To.Y)
	if t.Outcome != nil {
		fmt.Fprintf(&b, " outcome=%s", t.Outcome.Kind)
	}
	if t.Hit.Kind != "" && t.Hit.Kind != engine.HitNone {
		fmt.Fprintf(&b, " hit=%s damage=%d", t.Hit.Kind, t.Damage)
	}
	if t.NoOp {
		fmt.Fprintf(&b, " no-op=%s", t.NoOpReason)
	}
	b.WriteString("\n")

	if result.Threat != "" {
		fmt.Fprintf(&b, "Threat: %s\n", result.Threat)
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ","))
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	if log := formatLog(result.Log, 0); log != "" {
		b.WriteString(log)
		b.WriteString("\n")
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	chapterID := ""
	rows, cols := 0, 0
	if result.GameState != nil {
		chapterID = result.GameState.ChapterID
		rows, cols = result.GameState.Board.Rows, result.GameState.Board.Cols
	}
	fmt.Fprintf(&b, "Session: %s • Chapter: %s • Grid: %dx%d\n", sessionID, chapterID, cols, rows)

	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s (%s)\n", result.StoppedOnMove, result.StoppedReason, result.StopReasonCode)
	}
	fmt.Fprintf(&b, "Decoys: %d→%d • Items collected: +%d\n", result.StartHP, result.EndHP, result.CollectedDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			b.WriteString(formatStepLine(s))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	if result.Threat != "" {
		fmt.Fprintf(&b, "\nThreat: %s\n", result.Threat)
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ","))
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

// formatStepLine renders a single compact step line
func formatStepLine(s service.StepInfo) string {
	status := "✗"
	if s.Success {
		status = "✓"
	}
	line := fmt.Sprintf("%d. %s (%d,%d)→(%d,%d) cell=%s decoys=%d→%d %s",
		s.Idx, s.Dir, s.From.X, s.From.Y, s.To.X, s.To.Y, s.Symbol, s.HPBefore, s.HPAfter, status)
	if s.Hit != "" && s.Hit != engine.HitNone {
		line += " hit=" + string(s.Hit)
	}
	if s.ItemID != "" {
		line += " item=" + s.ItemID
	}
	if s.Victory {
		line += " VICTORY"
	}
	return line + "\n"
}

// formatLocal3x3 renders a 3x3 window centered on the player
func formatLocal3x3(state *engine.GameState) string {
	if state == nil || len(state.Board.Cells) == 0 {
		return ""
	}
	px, py := state.Player.Pos.X, state.Player.Pos.Y
	var lines [3]string
	for dy := -1; dy <= 1; dy++ {
		var row strings.Builder
		for dx := -1; dx <= 1; dx++ {
			row.WriteString(state.VisibleSymbol(px+dx, py+dy))
		}
		lines[dy+1] = row.String()
	}
	return lines[0] + "\n" + lines[1] + "\n" + lines[2] + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) — Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for i, move := range history.Moves {
		num := (history.Page-1)*history.PageSize + i + 1
		b.WriteString(formatHistoryLine(num, move))
	}

	return b.String()
}

func formatHistoryLine(num int, move engine.MoveHistoryEntry) string {
	status := "✓"
	if !move.Success {
		status = "✗"
	}
	line := fmt.Sprintf("%d. %s %s [Decoys: %d]", num, move.Action, status, move.HP)
	if move.Outcome != "" {
		line += " " + string(move.Outcome)
	}
	if move.Hit != "" && move.Hit != engine.HitNone {
		line += " " + string(move.Hit)
	}
	return line + "\n"
}

func formatCurrentSegment(state *engine.GameState) string {
	if state == nil {
		return "Current Segment: unavailable"
	}
	header := fmt.Sprintf("Current Move Segment — Moves: %d\n\n", state.CurrentMovesCount)
	if len(state.CurrentMoves) == 0 {
		return header + "(no moves in current segment)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, move := range state.CurrentMoves {
		b.WriteString(formatHistoryLine(i+1, move))
	}
	return b.String()
}

// formatLog renders the last n comms log entries; n <= 0 renders all
func formatLog(entries []narrative.Entry, n int) string {
	if len(entries) == 0 {
		return ""
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	var b strings.Builder
	b.WriteString("Comms:")
	for _, e := range entries {
		if e.Title != "" {
			fmt.Fprintf(&b, "\n  [%s] %s", e.Title, e.Message)
		} else {
			fmt.Fprintf(&b, "\n  %s", e.Message)
		}
	}
	return b.String()
}

func formatProgress(info *service.ProgressInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unlocked chapters: %s\n", strings.Join(info.Unlocked, ", "))
	if len(info.Cleared) > 0 {
		fmt.Fprintf(&b, "Cleared chapters: %s\n", strings.Join(info.Cleared, ", "))
	}

	have := 0
	for _, g := range info.Gallery {
		if g.Collected {
			have++
		}
	}
	fmt.Fprintf(&b, "\nGallery (%d/%d):\n", have, len(info.Gallery))
	for _, g := range info.Gallery {
		mark := "  "
		if g.Collected {
			mark = "✓ "
		}
		fmt.Fprintf(&b, "%s%s", mark, g.Name)
		if g.Rarity != "" {
			fmt.Fprintf(&b, " [%s]", g.Rarity)
		}
		b.WriteString("\n")
	}
	return b.String()
}
