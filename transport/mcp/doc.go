// Package mcp exposes frontier sessions to AI agents over the Model Context Protocol.
//
// The client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON response is rendered as compact text an agent can read.
//
// Tools:
//   - create_session, get_session, list_sessions: session lifecycle
//   - game_state: board as the player sees it, with a 3x3 window around them
//   - move, bulk_move: one or several turns, with an intent argument for reasoning
//   - toggle_flag: mark a suspected mine without spending a turn
//   - reset_game, move_history: restart and review
//   - describe_cell: what one cell shows, honouring vision range
//   - list_configs, progress, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
