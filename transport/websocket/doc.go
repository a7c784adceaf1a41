// Package websocket provides live session updates for Frontier.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every turn, reset and flag change
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// A central Hub tracks which clients watch which session. Each connection has
// a read pump and a write pump goroutine. Broadcasts never block the caller:
// a client whose buffer is full is dropped and must reconnect.
//
// Message Protocol:
//
// Outgoing messages are JSON objects with session_id, event and either a
// game_state snapshot or event data. Clients are spectators; inbound frames
// are read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
//	})
//
//	hub.BroadcastToSession(sessionID, state)
package websocket
