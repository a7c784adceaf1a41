package engine

import (
	"strconv"
	"strings"
	"time"
)

// Board symbols used by the text renderings of a session
const (
	SymbolPlayer   = "@"
	SymbolHostile  = "E"
	SymbolWall     = "X"
	SymbolUnopened = "#"
	SymbolFlag     = "F"
	SymbolMine     = "*"
	SymbolGoal     = "G"
	SymbolEvent    = "!"
	SymbolItem     = "+"
	SymbolEmpty    = "."
)

// VisionRange is the Manhattan radius in which unopened cells show their content
const VisionRange = 1

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Coord) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// VisibleSymbol returns what the player can see at (x, y). Hostiles are always
// visible; cell content shows once the cell is open or within vision range.
func (gs *GameState) VisibleSymbol(x, y int) string {
	if !gs.Board.InBounds(x, y) {
		return SymbolWall
	}
	c := Coord{X: x, Y: y}
	if gs.Player.Pos == c {
		return SymbolPlayer
	}
	if gs.HostileAt(c) >= 0 {
		return SymbolHostile
	}

	cell := gs.Board.Cells[gs.Board.index(x, y)]
	inVision := ManhattanDistance(gs.Player.Pos, c) <= VisionRange

	if !cell.IsOpen && !inVision {
		if cell.IsFlagged {
			return SymbolFlag
		}
		return SymbolUnopened
	}

	switch {
	case cell.HasMine && cell.IsOpen:
		return SymbolMine
	case cell.HasMine:
		return SymbolUnopened
	case cell.IsGoal:
		return SymbolGoal
	case cell.EventID != "":
		return SymbolEvent
	case cell.ItemID != "":
		return SymbolItem
	case cell.NeighborMines > 0:
		return strconv.Itoa(cell.NeighborMines)
	case cell.IsOpen:
		return SymbolEmpty
	default:
		return SymbolUnopened
	}
}

// GenerateLocalView creates list of 8 surrounding cells around the player
func (gs *GameState) GenerateLocalView() []SurroundingCell {
	px, py := gs.Player.Pos.X, gs.Player.Pos.Y

	directions := []struct{ dx, dy int }{
		{0, -1},  // North
		{1, -1},  // North-East
		{1, 0},   // East
		{1, 1},   // South-East
		{0, 1},   // South
		{-1, 1},  // South-West
		{-1, 0},  // West
		{-1, -1}, // North-West
	}

	surroundings := make([]SurroundingCell, 8)
	for i, dir := range directions {
		x, y := px+dir.dx, py+dir.dy
		surroundings[i] = SurroundingCell{
			X:      x,
			Y:      y,
			Symbol: gs.VisibleSymbol(x, y),
		}
	}

	return surroundings
}

// RenderRows draws the whole board as seen by the player, one string per row
func (gs *GameState) RenderRows() []string {
	rows := make([]string, gs.Board.Rows)
	var sb strings.Builder
	for y := 0; y < gs.Board.Rows; y++ {
		sb.Reset()
		for x := 0; x < gs.Board.Cols; x++ {
			sb.WriteString(gs.VisibleSymbol(x, y))
		}
		rows[y] = sb.String()
	}
	return rows
}

// NearestHostile returns the closest hostile to the player and its distance
func NearestHostile(state *GameState) (HostileState, int, bool) {
	minDistance := -1
	var nearest HostileState
	for _, h := range state.Hostiles {
		d := ManhattanDistance(state.Player.Pos, h.Position())
		if minDistance == -1 || d < minDistance {
			minDistance = d
			nearest = h
		}
	}
	return nearest, minDistance, minDistance >= 0
}

// AnalyzeThreat assesses danger from hostiles relative to the remaining decoys
func AnalyzeThreat(state *GameState, registry *Registry) string {
	if state.Player.Status == StatusLost {
		return "CRITICAL: Caught or destroyed"
	}

	h, distance, found := NearestHostile(state)
	if !found {
		return "SAFE: No hostiles on patrol"
	}

	attack, err := registry.Attack(h.Kind)
	if err != nil {
		return "WARNING: Unknown hostile nearby"
	}

	if distance <= 2 && state.Player.HP < attack {
		return "DANGER: Nearby hostile would end the run"
	} else if distance <= 2 {
		return "CAUTION: Hostile within two steps"
	} else if state.Player.HP <= state.Player.MaxHP/3 {
		return "LOW: Few decoys left"
	}

	return "SAFE: Decoys sufficient"
}

// AddMoveToHistory adds a move to the game's move history
func (gs *GameState) AddMoveToHistory(action string, r TurnResult) {
	entry := MoveHistoryEntry{
		Action:       action,
		FromPosition: r.From,
		ToPosition:   r.To,
		HP:           gs.Player.HP,
		Hit:          r.Hit.Kind,
		Timestamp:    time.Now().Unix(),
		Success:      !r.NoOp,
		MoveNumber:   gs.TotalMoves + 1,
	}
	if r.Outcome != nil {
		entry.Outcome = r.Outcome.Kind
	}
	// Append to cumulative history (never cleared by reset) and increment total
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++

	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}
