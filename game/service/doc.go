// Package service provides the business logic layer for Frontier.
//
// The service package implements:
//   - Multi-session chapter management
//   - Turn processing with narration
//   - Cross-session progress (collections and chapter unlocks)
//   - Move history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads chapter definitions and the shared registry.
// ProgressStore records what the player collected and which chapters are open.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP, TUI)
// and the engine. Each session owns its own engine; a per-session mutex makes
// every submitted turn a single complete transition. Snapshots returned to
// callers are deep copies and never alias live state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	store, _ := progress.NewStore("data/progress.yaml", "chapter1")
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithProgress(store))
//
//	info, err := gameService.CreateSession(ctx, "chapter1")
//	result, err := gameService.Move(ctx, info.ID, "up", false)
package service
