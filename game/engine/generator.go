package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/zyedidia/generic/mapset"
)

// ItemQuota asks the generator for Count copies of item ID
type ItemQuota struct {
	ID    string `json:"id" yaml:"id"`
	Count int    `json:"count" yaml:"count"`
}

// GenerateOptions controls special-content placement.
// A nil Rand uses the unseeded global source; tests inject a seeded one.
type GenerateOptions struct {
	Rand         *rand.Rand
	Items        []ItemQuota
	Events       []string
	Goal         bool
	ExcludeItems []string
}

// Generate builds a fresh board. Every cell outside forbidden is a candidate; the
// candidates are shuffled once and consumed from the front for mines, items, events
// and finally the goal, so placement always terminates and content never overlaps.
// The first forbidden coordinate becomes the board's spawn.
func Generate(rows, cols, mineCount int, forbidden []Coord, opts GenerateOptions) (Board, error) {
	if rows <= 0 || cols <= 0 {
		return Board{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cols, rows)
	}
	if mineCount < 0 {
		return Board{}, fmt.Errorf("%w: negative mine count %d", ErrInvalidDimensions, mineCount)
	}

	spawn := DefaultSpawn(rows, cols)
	if len(forbidden) > 0 {
		spawn = forbidden[0]
	}
	b := newEmptyBoard(rows, cols, spawn)

	blocked := mapset.New[Coord]()
	for _, c := range forbidden {
		if !b.InBounds(c.X, c.Y) {
			return Board{}, fmt.Errorf("forbidden cell: %w", b.outOfBounds(c.X, c.Y))
		}
		blocked.Put(c)
	}

	items, err := expandItems(opts.Items, opts.ExcludeItems)
	if err != nil {
		return Board{}, err
	}
	goals := 0
	if opts.Goal {
		goals = 1
	}

	free := rows*cols - blocked.Size()
	needed := mineCount + len(items) + len(opts.Events) + goals
	if needed > free {
		return Board{}, fmt.Errorf("%w: %d mines, %d items, %d events and %d goal need %d cells but only %d are free",
			ErrOverDensity, mineCount, len(items), len(opts.Events), goals, needed, free)
	}

	eligible := make([]Coord, 0, free)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := Coord{X: x, Y: y}
			if !blocked.Has(c) {
				eligible = append(eligible, c)
			}
		}
	}
	swap := func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] }
	if opts.Rand != nil {
		opts.Rand.Shuffle(len(eligible), swap)
	} else {
		rand.Shuffle(len(eligible), swap)
	}

	next := 0
	take := func() *Cell {
		c := eligible[next]
		next++
		return &b.Cells[b.index(c.X, c.Y)]
	}

	for range mineCount {
		take().HasMine = true
	}
	for _, id := range items {
		take().ItemID = id
	}
	for _, id := range opts.Events {
		take().EventID = id
	}
	if opts.Goal {
		take().IsGoal = true
	}

	b.Mines = mineCount
	b.computeNeighborCounts()
	return b, nil
}

// CreateBoard generates a board whose bottom-centre spawn is kept free of all content
func CreateBoard(rows, cols, mineCount int, opts GenerateOptions) (Board, error) {
	return Generate(rows, cols, mineCount, []Coord{DefaultSpawn(rows, cols)}, opts)
}

// expandItems flattens the manifest into one id per placement, dropping excluded ids
func expandItems(quotas []ItemQuota, exclude []string) ([]string, error) {
	skip := mapset.New[string]()
	for _, id := range exclude {
		skip.Put(id)
	}

	var out []string
	for _, q := range quotas {
		if q.Count < 0 {
			return nil, fmt.Errorf("%w: item %q has negative count %d", ErrInvalidDimensions, q.ID, q.Count)
		}
		if skip.Has(q.ID) {
			continue
		}
		for range q.Count {
			out = append(out, q.ID)
		}
	}
	return out, nil
}
