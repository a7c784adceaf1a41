package engine

import (
	"fmt"
	"math/rand/v2"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() (*GameState, error)
	IsGameOver() bool
	IsVictory() bool
	GetHP() int
	GetPlayerPosition() Coord

	// Movement operations
	Move(direction string) (TurnResult, error)
	Step(dx, dy int) (TurnResult, error)
	CanMove(direction string) bool
	GetPossibleMoves() []string
	ToggleFlag(x, y int) error

	// Configuration
	GetConfig() *ChapterConfig
	GetRegistry() *Registry

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	// Local view
	GetLocalView() []SurroundingCell

	// Collection
	GetCollected() int
	GetRemainingItems() int
}

// Direction names accepted by Move
const (
	DirectionUp    = "up"
	DirectionDown  = "down"
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Directions lists the moves in the order GetPossibleMoves reports them
var Directions = []string{DirectionUp, DirectionDown, DirectionLeft, DirectionRight}

// DirectionDelta maps a direction name to its (dx, dy) step
func DirectionDelta(direction string) (int, int, error) {
	switch direction {
	case DirectionUp:
		return 0, -1, nil
	case DirectionDown:
		return 0, 1, nil
	case DirectionLeft:
		return -1, 0, nil
	case DirectionRight:
		return 1, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithRand makes board generation reproducible
func WithRand(rng *rand.Rand) Option {
	return func(e *GameEngine) { e.rng = rng }
}

// WithRegistry replaces the built-in hostile and item tables
func WithRegistry(registry *Registry) Option {
	return func(e *GameEngine) { e.registry = registry }
}

// WithExcludedItems keeps the given item ids off generated boards
func WithExcludedItems(ids []string) Option {
	return func(e *GameEngine) { e.exclude = append([]string(nil), ids...) }
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state    *GameState
	config   *ChapterConfig
	registry *Registry
	orch     *Orchestrator
	rng      *rand.Rand
	exclude  []string
}

// NewEngine creates a new game engine for the chapter and starts its first session
func NewEngine(config *ChapterConfig, opts ...Option) (*GameEngine, error) {
	engine := &GameEngine{config: config}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.registry == nil {
		engine.registry = DefaultRegistry()
	}

	if err := ValidateChapterConfig(config, engine.registry); err != nil {
		return nil, err
	}
	engine.orch = NewOrchestrator(config, engine.registry)

	state, err := engine.orch.NewGame(engine.rng, engine.exclude)
	if err != nil {
		return nil, err
	}
	engine.state = &state
	return engine, nil
}

// NewEngineWithDefaults creates a new game engine for the first built-in chapter
func NewEngineWithDefaults(opts ...Option) (*GameEngine, error) {
	return NewEngine(DefaultChapters()["chapter1"], opts...)
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Board.Rows != e.config.Rows || state.Board.Cols != e.config.Cols {
		return fmt.Errorf("%w: state board %dx%d does not match chapter %s (%dx%d)",
			ErrInvalidDimensions, state.Board.Cols, state.Board.Rows, e.config.ID, e.config.Cols, e.config.Rows)
	}
	if len(state.Board.Cells) != state.Board.Rows*state.Board.Cols {
		return fmt.Errorf("%w: state has %d cells for a %dx%d board",
			ErrInvalidDimensions, len(state.Board.Cells), state.Board.Cols, state.Board.Rows)
	}
	if p := state.Player.Pos; !state.Board.InBounds(p.X, p.Y) {
		return fmt.Errorf("player: %w: (%d,%d) on %dx%d board",
			ErrOutOfBounds, p.X, p.Y, state.Board.Cols, state.Board.Rows)
	}
	if err := validateHostiles(state.Hostiles, state.Board, e.registry); err != nil {
		return err
	}
	e.state = state
	return nil
}

// validateHostiles checks restored hostiles so stepping and positioning stay in range
func validateHostiles(hostiles []HostileState, board Board, registry *Registry) error {
	for i, h := range hostiles {
		if _, ok := registry.Hostiles[h.Kind]; !ok {
			return fmt.Errorf("hostile %d (%s): %w: %q", i, h.UID, ErrUnknownHostile, h.Kind)
		}
		if len(h.Route) == 0 {
			return fmt.Errorf("hostile %d (%s): %w", i, h.UID, ErrEmptyRoute)
		}
		if h.Idx < 0 || h.Idx >= len(h.Route) {
			return fmt.Errorf("hostile %d (%s): %w: route index %d of %d",
				i, h.UID, ErrOutOfBounds, h.Idx, len(h.Route))
		}
		for j, p := range h.Route {
			if !board.InBounds(p.X, p.Y) {
				return fmt.Errorf("hostile %d (%s): waypoint %d: %w: (%d,%d) on %dx%d board",
					i, h.UID, j, ErrOutOfBounds, p.X, p.Y, board.Cols, board.Rows)
			}
		}
	}
	return nil
}

// Reset regenerates the board and restarts the chapter
func (e *GameEngine) Reset() (*GameState, error) {
	state, err := e.orch.NewGame(e.rng, e.exclude)
	if err != nil {
		return nil, err
	}

	// Preserve cumulative history and totals across resets
	if e.state != nil {
		state.MoveHistory = e.state.MoveHistory
		state.TotalMoves = e.state.TotalMoves
	}
	state.CurrentMoves = []MoveHistoryEntry{}
	state.CurrentMovesCount = 0

	e.state = &state
	return e.state, nil
}

// SetExcludedItems changes which item ids the next Reset keeps off the board
func (e *GameEngine) SetExcludedItems(ids []string) {
	e.exclude = append([]string(nil), ids...)
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.IsGameOver()
}

// IsVictory returns whether the player has won
func (e *GameEngine) IsVictory() bool {
	return e.state.Player.Status == StatusWon
}

// GetHP returns the remaining decoy count
func (e *GameEngine) GetHP() int {
	return e.state.Player.HP
}

// GetPlayerPosition returns the current player position
func (e *GameEngine) GetPlayerPosition() Coord {
	return e.state.Player.Pos
}

// Move attempts to move the player in the specified direction
func (e *GameEngine) Move(direction string) (TurnResult, error) {
	dx, dy, err := DirectionDelta(direction)
	if err != nil {
		return TurnResult{}, err
	}
	return e.step(direction, dx, dy)
}

// Step advances one turn by an arbitrary (dx, dy) in [-1, 1]
func (e *GameEngine) Step(dx, dy int) (TurnResult, error) {
	return e.step(fmt.Sprintf("step(%d,%d)", dx, dy), dx, dy)
}

func (e *GameEngine) step(action string, dx, dy int) (TurnResult, error) {
	next, result, err := e.orch.AdvanceTurn(*e.state, dx, dy)
	if err != nil {
		return TurnResult{}, err
	}

	next.AddMoveToHistory(action, result)
	e.state = &next
	return result, nil
}

// CanMove checks if the player can move in the specified direction
func (e *GameEngine) CanMove(direction string) bool {
	if e.state.IsGameOver() {
		return false
	}
	dx, dy, err := DirectionDelta(direction)
	if err != nil {
		return false
	}
	pos := e.state.Player.Pos
	return e.state.Board.InBounds(pos.X+dx, pos.Y+dy)
}

// GetPossibleMoves returns all valid directions the player can move
func (e *GameEngine) GetPossibleMoves() []string {
	var possible []string

	for _, dir := range Directions {
		if e.CanMove(dir) {
			possible = append(possible, dir)
		}
	}

	return possible
}

// ToggleFlag marks or unmarks an unopened cell. It has no effect once the session ended.
func (e *GameEngine) ToggleFlag(x, y int) error {
	if e.state.IsGameOver() {
		return nil
	}
	b, err := e.state.Board.ToggleFlag(x, y)
	if err != nil {
		return err
	}
	e.state.Board = b
	return nil
}

// GetConfig returns the current chapter configuration
func (e *GameEngine) GetConfig() *ChapterConfig {
	return e.config
}

// GetRegistry returns the hostile and item tables the engine resolves against
func (e *GameEngine) GetRegistry() *Registry {
	return e.registry
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// GetLocalView returns the local view around the player
func (e *GameEngine) GetLocalView() []SurroundingCell {
	return e.state.GenerateLocalView()
}

// GetCollected returns the number of items picked up this session
func (e *GameEngine) GetCollected() int {
	return e.state.Player.Collected
}

// GetRemainingItems returns how many more items the goal requires
func (e *GameEngine) GetRemainingItems() int {
	remaining := e.state.RequiredItems - e.state.Player.Collected
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BulkMove executes multiple moves in sequence and stops once the session ends
func (e *GameEngine) BulkMove(moves []string) ([]TurnResult, error) {
	results := make([]TurnResult, 0, len(moves))

	for _, direction := range moves {
		if e.IsGameOver() {
			break
		}

		result, err := e.Move(direction)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}
