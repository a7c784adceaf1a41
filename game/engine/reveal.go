package engine

// StepOnCell opens (x, y) on a copy of b and classifies what the player found there.
// Priority is mine, goal, event, pickup, safe. Events and items are one-shot and are
// cleared from the returned cell.
func StepOnCell(b Board, x, y int) (Board, Outcome, error) {
	if !b.InBounds(x, y) {
		return b, Outcome{}, b.outOfBounds(x, y)
	}

	out := b.Clone()
	cell := &out.Cells[out.index(x, y)]
	cell.IsOpen = true

	switch {
	case cell.HasMine:
		return out, Outcome{Kind: OutcomeMine}, nil
	case cell.IsGoal:
		return out, Outcome{Kind: OutcomeGoal}, nil
	case cell.EventID != "":
		id := cell.EventID
		cell.EventID = ""
		return out, Outcome{Kind: OutcomeEvent, EventID: id}, nil
	case cell.ItemID != "":
		id := cell.ItemID
		cell.ItemID = ""
		return out, Outcome{Kind: OutcomePickup, ItemID: id}, nil
	default:
		return out, Outcome{Kind: OutcomeSafe, NeighborMines: cell.NeighborMines}, nil
	}
}

// FloodReveal opens (x, y) and cascades through zero-neighbour regions using an
// explicit stack. Flagged cells are never opened, even when reachable.
func FloodReveal(b Board, x, y int) (Board, error) {
	if !b.InBounds(x, y) {
		return b, b.outOfBounds(x, y)
	}

	out := b.Clone()
	stack := []Coord{{X: x, Y: y}}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cell := &out.Cells[out.index(c.X, c.Y)]
		if cell.IsOpen || cell.IsFlagged {
			continue
		}
		cell.IsOpen = true

		if cell.HasMine || cell.NeighborMines != 0 {
			continue
		}
		for _, n := range out.Neighbors(c.X, c.Y) {
			neighbor := out.Cells[out.index(n.X, n.Y)]
			if !neighbor.IsOpen && !neighbor.HasMine {
				stack = append(stack, n)
			}
		}
	}

	return out, nil
}

// CheckWin reports whether every non-mine cell is open
func CheckWin(b Board) bool {
	for _, c := range b.Cells {
		if !c.HasMine && !c.IsOpen {
			return false
		}
	}
	return true
}
