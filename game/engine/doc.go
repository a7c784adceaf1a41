// Package engine provides the core simulation of the Frontier grid encounters.
//
// The engine package implements:
//   - Board generation with pre-shuffled placement of mines, items, events and the goal
//   - Single-cell reveal outcomes and the zero-region flood cascade
//   - Hostile patrols on fixed cyclic routes
//   - Collision classification (direct hit or crossing) within one turn
//   - Turn orchestration with decoy accounting and the collection-gated goal
//   - Chapter configuration and the hostile and item registries
//
// Core Types:
//
// Board is an immutable row-major grid value; every operation returns a fresh
// copy. GameState is the full snapshot of a chapter session and Orchestrator
// turns one snapshot into the next. GameEngine wraps an Orchestrator for
// callers that hold one live session, such as the session manager.
//
// Usage:
//
//	chapter := engine.DefaultChapters()["chapter1"]
//	gameEngine, err := engine.NewEngine(chapter)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameEngine.Move("up")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if result.HasNotice(engine.NoticeInsufficientCollection) {
//		// the goal stays shut until enough items are collected
//	}
//
// Game Rules:
//
// Each turn the player steps one cell, every hostile advances one waypoint, and
// the step is checked for a collision before the destination is revealed. Hits
// are paid for with decoys; running out of decoys or stepping on a mine loses
// the chapter. Under the goal ruleset the chapter is won by reaching the goal
// after collecting the required items; under the clear ruleset it is won once
// every safe cell is open.
package engine
