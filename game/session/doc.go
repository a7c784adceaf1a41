// Package session provides session management for Frontier.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Optional JSON file persistence
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns its own engine instance bound to one chapter, plus the
// narrative log shown to the player.
//
// Session Identifiers:
//
// Generated IDs are the first eight hex characters of a random UUID. The
// manager retries on collision. IDs are case-insensitive and may not contain
// path separators, dots or spaces since they double as file names.
//
// Persistence:
//
// FilePersistence writes one JSON file per session holding the chapter id and
// the full game state. Loading rebuilds the engine from the chapter and then
// restores the saved state, so a resumed session continues the same board.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", chapter)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
package session
