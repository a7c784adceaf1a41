package report

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/misoria/frontier/game/engine"
)

func newTestState(t *testing.T) *engine.GameState {
	t.Helper()
	eng, err := engine.NewEngine(engine.DefaultChapters()["chapter2"], engine.WithRand(rand.New(rand.NewPCG(3, 4))))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng.GetState()
}

func TestFieldMap_NoState(t *testing.T) {
	if _, err := FieldMap(nil, Options{}); !errors.Is(err, ErrNoState) {
		t.Errorf("expected ErrNoState, got %v", err)
	}
	if _, err := FieldMap(&engine.GameState{}, Options{}); !errors.Is(err, ErrNoState) {
		t.Errorf("expected ErrNoState for an empty board, got %v", err)
	}
}

func TestFieldMap_ReturnsPDF(t *testing.T) {
	state := newTestState(t)
	state.CollectionLog = []engine.CollectionRecord{{ItemID: "medkit", Turn: 3}}
	state.Events = []string{"signal_a"}

	tests := []struct {
		name string
		opts Options
	}{
		{"fog of war", Options{}},
		{"revealed with routes", Options{Title: "Chapter 2", Reveal: true, Routes: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := FieldMap(state, tt.opts)
			if err != nil {
				t.Fatalf("FieldMap: %v", err)
			}
			if len(b) < 100 {
				t.Errorf("PDF too short: %d bytes", len(b))
			}
			if !bytes.HasPrefix(b, []byte("%PDF")) {
				t.Error("output is not a PDF (missing %PDF header)")
			}
		})
	}
}

func TestCellGlyph(t *testing.T) {
	state := &engine.GameState{Player: engine.PlayerTurnState{Pos: engine.Coord{X: 0, Y: 0}}}
	far := func(c engine.Cell) engine.Cell { c.X, c.Y = 5, 5; return c }
	near := func(c engine.Cell) engine.Cell { c.X, c.Y = 1, 0; return c }

	tests := []struct {
		name   string
		cell   engine.Cell
		reveal bool
		want   string
	}{
		{"hidden", far(engine.Cell{ItemID: "medkit"}), false, ""},
		{"hidden flagged", far(engine.Cell{IsFlagged: true}), false, engine.SymbolFlag},
		{"revealed item", far(engine.Cell{ItemID: "medkit"}), true, engine.SymbolItem},
		{"item in vision", near(engine.Cell{ItemID: "medkit"}), false, engine.SymbolItem},
		{"mine in vision stays hidden", near(engine.Cell{HasMine: true}), false, ""},
		{"open mine", far(engine.Cell{HasMine: true, IsOpen: true}), false, engine.SymbolMine},
		{"revealed mine", far(engine.Cell{HasMine: true}), true, engine.SymbolMine},
		{"open count", far(engine.Cell{IsOpen: true, NeighborMines: 3}), false, "3"},
		{"open empty", far(engine.Cell{IsOpen: true}), false, ""},
		{"goal", near(engine.Cell{IsGoal: true}), false, engine.SymbolGoal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellGlyph(state, tt.cell, tt.reveal); got != tt.want {
				t.Errorf("cellGlyph() = %q, want %q", got, tt.want)
			}
		})
	}
}
