package engine

import "fmt"

// Board is a rectangular grid stored row-major in a flat slice.
// Operations never mutate the receiver; they return a fresh copy.
type Board struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Mines int    `json:"mines"`
	Spawn Coord  `json:"spawn"`
	Cells []Cell `json:"cells"`
}

// DefaultSpawn is the bottom-centre cell used as the player's entry point
func DefaultSpawn(rows, cols int) Coord {
	return Coord{X: cols / 2, Y: rows - 1}
}

func newEmptyBoard(rows, cols int, spawn Coord) Board {
	b := Board{
		Rows:  rows,
		Cols:  cols,
		Spawn: spawn,
		Cells: make([]Cell, rows*cols),
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			b.Cells[y*cols+x] = Cell{X: x, Y: y}
		}
	}
	return b
}

func (b Board) index(x, y int) int {
	return y*b.Cols + x
}

// InBounds checks whether (x, y) lies on the grid
func (b Board) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Cols && y < b.Rows
}

// Clone returns a copy that shares no memory with b
func (b Board) Clone() Board {
	out := b
	out.Cells = make([]Cell, len(b.Cells))
	copy(out.Cells, b.Cells)
	return out
}

// At returns the cell at (x, y)
func (b Board) At(x, y int) (Cell, error) {
	if !b.InBounds(x, y) {
		return Cell{}, b.outOfBounds(x, y)
	}
	return b.Cells[b.index(x, y)], nil
}

// Clamp pins (x, y) to the nearest on-grid coordinate
func (b Board) Clamp(x, y int) Coord {
	if x < 0 {
		x = 0
	}
	if x >= b.Cols {
		x = b.Cols - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= b.Rows {
		y = b.Rows - 1
	}
	return Coord{X: x, Y: y}
}

// Neighbors returns the on-grid cells of the 8-neighbourhood of (x, y); edges do not wrap
func (b Board) Neighbors(x, y int) []Coord {
	out := make([]Coord, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if b.InBounds(nx, ny) {
				out = append(out, Coord{X: nx, Y: ny})
			}
		}
	}
	return out
}

// CountCells counts the cells matching pred
func (b Board) CountCells(pred func(Cell) bool) int {
	n := 0
	for _, c := range b.Cells {
		if pred(c) {
			n++
		}
	}
	return n
}

// CountItems counts uncollected items still lying on the board
func (b Board) CountItems() int {
	return b.CountCells(func(c Cell) bool { return c.ItemID != "" })
}

// ToggleFlag flips the flag on an unopened cell. Flags have no gameplay outcome.
func (b Board) ToggleFlag(x, y int) (Board, error) {
	if !b.InBounds(x, y) {
		return b, b.outOfBounds(x, y)
	}
	if b.Cells[b.index(x, y)].IsOpen {
		return b, nil
	}
	out := b.Clone()
	cell := &out.Cells[out.index(x, y)]
	cell.IsFlagged = !cell.IsFlagged
	return out, nil
}

func (b Board) countNeighborMines(x, y int) int {
	count := 0
	for _, n := range b.Neighbors(x, y) {
		if b.Cells[b.index(n.X, n.Y)].HasMine {
			count++
		}
	}
	return count
}

// computeNeighborCounts fills NeighborMines for every non-mine cell; called once after placement
func (b *Board) computeNeighborCounts() {
	for i := range b.Cells {
		c := &b.Cells[i]
		if c.HasMine {
			c.NeighborMines = 0
			continue
		}
		c.NeighborMines = b.countNeighborMines(c.X, c.Y)
	}
}

func (b Board) outOfBounds(x, y int) error {
	return fmt.Errorf("%w: (%d,%d) on %dx%d board", ErrOutOfBounds, x, y, b.Cols, b.Rows)
}
